package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/beevik/etree"

	"lending-service/internal/models"
)

func TestAgentCollectionsXML(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r := &models.AgentCollections{
		AgentID:        "agent-1",
		TotalCollected: 1133,
		EmiCollectionData: []*models.AgentCollectionEntry{
			{ClientID: "c1", ClientName: "Asha & Sons", LoanNumber: "LN-1", Amount: 1030, Date: at, Status: models.EmiStatusPaid, PaymentMode: models.PaymentModeCash, Location: models.Location{Lat: 28.6, Lng: 77.2}},
			{ClientID: "c2", ClientName: "Ravi", LoanNumber: "LN-2", Amount: 103, Date: at, Status: models.EmiStatusDefaulted},
		},
	}

	var buf bytes.Buffer
	if err := WriteAgentCollectionsXML(&buf, r, at); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(buf.Bytes()); err != nil {
		t.Fatalf("report is not valid XML: %v", err)
	}

	root := doc.SelectElement("AgentCollections")
	if root == nil || root.SelectAttrValue("agentId", "") != "agent-1" {
		t.Fatalf("root = %v", root)
	}
	if got := root.FindElement("TotalCollected").Text(); got != "1133.00" {
		t.Errorf("TotalCollected = %s", got)
	}

	entries := root.FindElements("Entries/Entry")
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if got := entries[0].FindElement("ClientName").Text(); got != "Asha & Sons" {
		t.Errorf("ClientName = %q", got)
	}
	if got := entries[1].SelectAttrValue("status", ""); got != "Defaulted" {
		t.Errorf("status = %s", got)
	}
	if entries[1].FindElement("PaymentMode") != nil {
		t.Error("empty payment mode should be omitted")
	}
	if got := entries[0].FindElement("Location").SelectAttrValue("lat", ""); got != "28.6" {
		t.Errorf("lat = %s", got)
	}
}

func TestAgentCollectionsXMLEmpty(t *testing.T) {
	doc := AgentCollectionsXML(&models.AgentCollections{AgentID: "a"}, time.Now())
	if got := doc.FindElement("//Count").Text(); got != "0" {
		t.Errorf("Count = %s", got)
	}
	if n := len(doc.FindElements("//Entry")); n != 0 {
		t.Errorf("entries = %d", n)
	}
}
