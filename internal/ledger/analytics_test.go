package ledger

import (
	"testing"
	"time"

	"lending-service/internal/models"
)

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, 0)
	if *got != (models.DashboardSummary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero summary", got)
	}
}

func TestSummarize(t *testing.T) {
	clients := []*models.Client{
		{
			ID:         "c1",
			ClientName: "Asha",
			Loans: []*models.Loan{
				{
					LoanAmount:      10000,
					TotalPayable:    11000,
					TotalCollected:  1260,
					TotalAmountLeft: 9740,
					EmiRecords: []models.EmiRecord{
						{Amount: 110, Status: models.EmiStatusPaid},
						{Amount: 1100, Status: models.EmiStatusPaid},
						{Amount: 50, Status: models.EmiStatusPartial},
					},
				},
			},
		},
		{
			ID:         "c2",
			ClientName: "Vikram",
			Loans: []*models.Loan{
				{LoanAmount: 5000, TotalPayable: 5000, TotalAmountLeft: 5000, OpenDefaults: 1},
				{LoanAmount: 2000, TotalPayable: 2000, TotalCollected: 2000},
			},
		},
	}

	got := Summarize(clients, 1)

	want := models.DashboardSummary{
		TotalLoanDisbursed:   17000,
		TotalAmountRecovered: 1260,
		TotalAmountRemaining: 14740,
		TotalEmisCollected:   3,
		DefaulterCount:       1,
		ClientCount:          2,
		LoanCount:            3,
		OngoingLoans:         1,
		CompletedLoans:       1,
		DefaultedLoans:       1,
	}
	if *got != want {
		t.Errorf("Summarize = %+v\nwant %+v", *got, want)
	}
}

func TestAgentCollections(t *testing.T) {
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	clients := []*models.Client{
		{
			ID:         "c1",
			ClientName: "Asha",
			Loans: []*models.Loan{
				{
					LoanNumber: "L-1",
					EmiRecords: []models.EmiRecord{
						{Date: day, Amount: 100, Status: models.EmiStatusPaid, CollectedBy: "a1"},
						{Date: day.AddDate(0, 0, 1), Amount: 100, Status: models.EmiStatusPaid, CollectedBy: "a2"},
						{Date: day.AddDate(0, 0, 2), Amount: 40, Status: models.EmiStatusPartial, CollectedBy: "a1"},
					},
				},
			},
		},
	}

	got := AgentCollections(clients, "a1")
	if got.TotalCollected != 140 {
		t.Errorf("total_collected = %v, want 140", got.TotalCollected)
	}
	if len(got.EmiCollectionData) != 2 {
		t.Fatalf("entries = %d, want 2", len(got.EmiCollectionData))
	}
	first := got.EmiCollectionData[0]
	if first.Amount != 40 || first.ClientName != "Asha" || first.LoanNumber != "L-1" {
		t.Errorf("newest entry = %+v", first)
	}

	empty := AgentCollections(clients, "nobody")
	if empty.TotalCollected != 0 || empty.EmiCollectionData == nil || len(empty.EmiCollectionData) != 0 {
		t.Errorf("unknown agent = %+v, want empty list", empty)
	}
}
