package models

import (
	"testing"
	"time"
)

func TestBuildSchedule(t *testing.T) {
	start := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	req := LoanRequest{LoanAmount: 1000, InterestRate: 12, TenureMonths: 3, EmiType: EmiTypeMonthly, StartDate: &start}
	loan, err := req.ToLoan(InterestPolicyTenure, "admin", start)
	if err != nil {
		t.Fatal(err)
	}
	// payable 1030, emi 343 => 343, 343, 344
	loan.TotalCollected = 400

	s := BuildSchedule(loan, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC))

	if len(s.Installments) != 3 {
		t.Fatalf("installments = %d", len(s.Installments))
	}
	if last := s.Installments[2]; last.Amount != 344 {
		t.Errorf("last installment = %v, want 344", last.Amount)
	}

	first, second, third := s.Installments[0], s.Installments[1], s.Installments[2]
	if first.Status != InstallmentStatusPaid || first.PaidAmount != 343 {
		t.Errorf("first = %+v", first)
	}
	if second.PaidAmount != 57 || second.Status != InstallmentStatusOverdue {
		t.Errorf("second = %+v", second)
	}
	if third.Status != InstallmentStatusDue {
		t.Errorf("third = %+v", third)
	}
	// Jan 31 + 1 month rolls over to Mar 2 in a leap year
	if want := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC); !first.DueDate.Equal(want) {
		t.Errorf("first due = %v, want %v", first.DueDate, want)
	}

	sum := s.Summary
	if sum.TotalAmount != 1030 || sum.PaidAmount != 400 || sum.RemainingAmount != 630 {
		t.Errorf("summary amounts = %+v", sum)
	}
	if sum.PaidInstallments != 1 || sum.OverdueInstallments != 1 || sum.DueInstallments != 1 || sum.OverdueAmount != 286 {
		t.Errorf("summary counts = %+v", sum)
	}
}

func TestBuildScheduleFullPayment(t *testing.T) {
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	req := LoanRequest{LoanAmount: 5000, InterestRate: 10, TenureDays: 60, EmiType: EmiTypeFullPayment, StartDate: &start}
	loan, err := req.ToLoan(InterestPolicyFlat, "admin", start)
	if err != nil {
		t.Fatal(err)
	}

	s := BuildSchedule(loan, start)
	if len(s.Installments) != 1 || s.Installments[0].Amount != 5000 || !s.Installments[0].DueDate.Equal(loan.DueDate) {
		t.Errorf("schedule = %+v", s.Installments[0])
	}
}
