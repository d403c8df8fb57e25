package ledger

import (
	"sort"

	"lending-service/internal/models"
	"lending-service/pkg/money"
)

// Summarize builds the dashboard rollup over a read-only snapshot of every
// client and the number of open defaults. An empty snapshot yields zeros.
func Summarize(clients []*models.Client, openDefaults int) *models.DashboardSummary {
	summary := &models.DashboardSummary{
		ClientCount:    len(clients),
		DefaulterCount: openDefaults,
	}

	for _, client := range clients {
		for _, loan := range client.Loans {
			summary.LoanCount++
			summary.TotalLoanDisbursed = money.Add(summary.TotalLoanDisbursed, loan.LoanAmount)
			summary.TotalAmountRemaining = money.Add(summary.TotalAmountRemaining, loan.TotalAmountLeft)

			switch loan.DeriveStatus() {
			case models.LoanStatusCompleted:
				summary.CompletedLoans++
			case models.LoanStatusDefaulted:
				summary.DefaultedLoans++
			default:
				summary.OngoingLoans++
			}

			for _, record := range loan.EmiRecords {
				summary.TotalEmisCollected++

				switch record.Status {
				case models.EmiStatusPaid, models.EmiStatusPartial:
					summary.TotalAmountRecovered = money.Add(summary.TotalAmountRecovered, record.Amount)
				case models.EmiStatusDefaulted:
					summary.DefaulterCount++
				}
			}
		}
	}

	return summary
}

// AgentCollections returns every EMI record collected by the agent, newest
// first, with the client name and loan number attached
func AgentCollections(clients []*models.Client, agentID string) *models.AgentCollections {
	report := &models.AgentCollections{
		AgentID:           agentID,
		EmiCollectionData: []*models.AgentCollectionEntry{},
	}

	for _, client := range clients {
		for _, loan := range client.Loans {
			for _, record := range loan.EmiRecords {
				if record.CollectedBy != agentID {
					continue
				}

				report.TotalCollected = money.Add(report.TotalCollected, record.Amount)
				report.EmiCollectionData = append(report.EmiCollectionData, &models.AgentCollectionEntry{
					ClientID:    client.ID,
					ClientName:  client.ClientName,
					LoanNumber:  loan.LoanNumber,
					Amount:      record.Amount,
					Date:        record.Date,
					Status:      record.Status,
					PaymentMode: record.PaymentMode,
					Location:    record.Location,
				})
			}
		}
	}

	sort.SliceStable(report.EmiCollectionData, func(i, j int) bool {
		return report.EmiCollectionData[i].Date.After(report.EmiCollectionData[j].Date)
	})

	return report
}
