package models

import (
	"time"

	"lending-service/pkg/money"
)

// InstallmentStatus defines the state of one scheduled EMI
type InstallmentStatus string

const (
	InstallmentStatusPaid    InstallmentStatus = "Paid"
	InstallmentStatusDue     InstallmentStatus = "Due"
	InstallmentStatusOverdue InstallmentStatus = "Overdue"
)

// ScheduledInstallment is one EMI of a loan's projected schedule
type ScheduledInstallment struct {
	Number     int               `json:"number"`
	DueDate    time.Time         `json:"due_date"`
	Amount     float64           `json:"amount"`
	PaidAmount float64           `json:"paid_amount"`
	Status     InstallmentStatus `json:"status"`
}

// EmiScheduleSummary represents summary statistics for a schedule
type EmiScheduleSummary struct {
	TotalInstallments   int     `json:"total_installments"`
	PaidInstallments    int     `json:"paid_installments"`
	DueInstallments     int     `json:"due_installments"`
	OverdueInstallments int     `json:"overdue_installments"`
	TotalAmount         float64 `json:"total_amount"`
	PaidAmount          float64 `json:"paid_amount"`
	RemainingAmount     float64 `json:"remaining_amount"`
	OverdueAmount       float64 `json:"overdue_amount"`
}

// EmiSchedule is the installment plan of a loan with collections applied in order
type EmiSchedule struct {
	LoanID       string                  `json:"loan_id"`
	LoanNumber   string                  `json:"loan_number"`
	EmiType      EmiType                 `json:"emi_type"`
	EmiAmount    float64                 `json:"emi_amount"`
	Installments []*ScheduledInstallment `json:"installments"`
	Summary      *EmiScheduleSummary     `json:"summary"`
}

// BuildSchedule projects the loan's installments. Everything collected so far
// is credited to the earliest installments; the last one absorbs rounding.
func BuildSchedule(loan *Loan, now time.Time) *EmiSchedule {
	count := loan.InstallmentCount
	if count < 1 {
		count = 1
	}

	schedule := &EmiSchedule{
		LoanID:       loan.ID,
		LoanNumber:   loan.LoanNumber,
		EmiType:      loan.EmiType,
		EmiAmount:    loan.EmiAmount,
		Installments: make([]*ScheduledInstallment, 0, count),
	}

	credit := loan.TotalCollected
	remaining := loan.TotalPayable

	for i := 1; i <= count; i++ {
		amount := loan.EmiAmount
		if i == count || amount > remaining {
			amount = remaining
		}
		remaining = money.Sub(remaining, amount)

		dueDate := loan.EmiType.Advance(loan.StartDate, i)
		if loan.EmiType == EmiTypeFullPayment {
			dueDate = loan.DueDate
		}

		item := &ScheduledInstallment{
			Number:  i,
			DueDate: dueDate,
			Amount:  amount,
		}

		switch {
		case credit >= amount:
			item.PaidAmount = amount
			credit = money.Sub(credit, amount)
		case credit > 0:
			item.PaidAmount = credit
			credit = 0
		}

		UpdateInstallmentStatus(item, now)
		schedule.Installments = append(schedule.Installments, item)
	}

	schedule.Summary = CalculateScheduleSummary(schedule.Installments)
	return schedule
}

// CalculateScheduleSummary calculates summary statistics for a schedule
func CalculateScheduleSummary(items []*ScheduledInstallment) *EmiScheduleSummary {
	summary := &EmiScheduleSummary{TotalInstallments: len(items)}

	for _, item := range items {
		open := money.Sub(item.Amount, item.PaidAmount)
		summary.TotalAmount = money.Add(summary.TotalAmount, item.Amount)
		summary.PaidAmount = money.Add(summary.PaidAmount, item.PaidAmount)
		summary.RemainingAmount = money.Add(summary.RemainingAmount, open)

		switch item.Status {
		case InstallmentStatusPaid:
			summary.PaidInstallments++
		case InstallmentStatusDue:
			summary.DueInstallments++
		case InstallmentStatusOverdue:
			summary.OverdueInstallments++
			summary.OverdueAmount = money.Add(summary.OverdueAmount, open)
		}
	}

	return summary
}

// UpdateInstallmentStatus sets the status of an installment based on the current date
func UpdateInstallmentStatus(item *ScheduledInstallment, now time.Time) {
	switch {
	case item.PaidAmount >= item.Amount:
		item.Status = InstallmentStatusPaid
	case now.After(item.DueDate):
		item.Status = InstallmentStatusOverdue
	default:
		item.Status = InstallmentStatusDue
	}
}
