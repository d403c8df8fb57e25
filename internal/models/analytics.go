package models

import "time"

// DashboardSummary is the admin dashboard rollup over every client and loan
type DashboardSummary struct {
	TotalLoanDisbursed   float64 `json:"total_loan_disbursed"`
	TotalAmountRecovered float64 `json:"total_amount_recovered"`
	TotalAmountRemaining float64 `json:"total_amount_remaining"`
	TotalEmisCollected   int     `json:"total_emis_collected"`
	DefaulterCount       int     `json:"defaulter_count"`
	ClientCount          int     `json:"client_count"`
	LoanCount            int     `json:"loan_count"`
	OngoingLoans         int     `json:"ongoing_loans"`
	CompletedLoans       int     `json:"completed_loans"`
	DefaultedLoans       int     `json:"defaulted_loans"`
}

// AgentCollectionEntry is one EMI record collected by an agent
type AgentCollectionEntry struct {
	ClientID    string      `json:"client_id"`
	ClientName  string      `json:"client_name"`
	LoanNumber  string      `json:"loan_number"`
	Amount      float64     `json:"amount_collected"`
	Date        time.Time   `json:"date"`
	Status      EmiStatus   `json:"status"`
	PaymentMode PaymentMode `json:"payment_mode"`
	Location    Location    `json:"location"`
}

// AgentCollections is the per-agent collection report
type AgentCollections struct {
	AgentID           string                  `json:"agent_id"`
	TotalCollected    float64                 `json:"total_collected"`
	EmiCollectionData []*AgentCollectionEntry `json:"emi_collection_data"`
}
