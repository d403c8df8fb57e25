package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"lending-service/internal/models"
)

// AgentCollectionsXML builds the per-agent collection report document
func AgentCollectionsXML(r *models.AgentCollections, generatedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("AgentCollections")
	root.CreateAttr("agentId", r.AgentID)
	root.CreateAttr("generatedAt", generatedAt.UTC().Format(time.RFC3339))

	root.CreateElement("TotalCollected").SetText(formatAmount(r.TotalCollected))
	root.CreateElement("Count").SetText(strconv.Itoa(len(r.EmiCollectionData)))

	entries := root.CreateElement("Entries")
	for _, e := range r.EmiCollectionData {
		el := entries.CreateElement("Entry")
		el.CreateAttr("status", string(e.Status))
		el.CreateElement("ClientID").SetText(e.ClientID)
		el.CreateElement("ClientName").SetText(e.ClientName)
		el.CreateElement("LoanNumber").SetText(e.LoanNumber)
		el.CreateElement("Amount").SetText(formatAmount(e.Amount))
		el.CreateElement("Date").SetText(e.Date.UTC().Format(time.RFC3339))
		if e.PaymentMode != "" {
			el.CreateElement("PaymentMode").SetText(string(e.PaymentMode))
		}

		loc := el.CreateElement("Location")
		loc.CreateAttr("lat", strconv.FormatFloat(e.Location.Lat, 'f', -1, 64))
		loc.CreateAttr("lng", strconv.FormatFloat(e.Location.Lng, 'f', -1, 64))
		if e.Location.Address != "" {
			loc.SetText(e.Location.Address)
		}
	}

	doc.Indent(2)
	return doc
}

// WriteAgentCollectionsXML writes the report to w
func WriteAgentCollectionsXML(w io.Writer, r *models.AgentCollections, generatedAt time.Time) error {
	if _, err := AgentCollectionsXML(r, generatedAt).WriteTo(w); err != nil {
		return fmt.Errorf("failed to write collection report: %w", err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
