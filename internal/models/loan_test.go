package models

import (
	"math"
	"testing"
	"time"

	"lending-service/pkg/apperrors"
)

var created = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

func TestToLoanDisbursedAmount(t *testing.T) {
	tenures := []struct {
		name   string
		days   int
		months int
	}{
		{"days", 90, 0},
		{"months", 0, 3},
	}
	types := []EmiType{EmiTypeDaily, EmiTypeWeekly, EmiTypeMonthly, EmiTypeFullPayment}
	policies := []InterestPolicy{InterestPolicyFlat, InterestPolicyTenure}

	for _, policy := range policies {
		for _, emiType := range types {
			for _, tenure := range tenures {
				name := string(policy) + "/" + string(emiType) + "/" + tenure.name
				t.Run(name, func(t *testing.T) {
					req := &LoanRequest{
						LoanAmount:   10000,
						InterestRate: 12,
						TenureDays:   tenure.days,
						TenureMonths: tenure.months,
						EmiType:      emiType,
					}

					loan, err := req.ToLoan(policy, "admin-1", created)
					if err != nil {
						t.Fatalf("ToLoan: %v", err)
					}

					if loan.DisbursedAmount != loan.LoanAmount-loan.Interest {
						t.Errorf("disbursed = %v, want %v", loan.DisbursedAmount, loan.LoanAmount-loan.Interest)
					}
					if loan.TotalAmountLeft != loan.TotalPayable || loan.TotalCollected != 0 {
						t.Errorf("left = %v collected = %v payable = %v", loan.TotalAmountLeft, loan.TotalCollected, loan.TotalPayable)
					}
					if loan.TenureDays != 90 {
						t.Errorf("tenure_days = %d, want 90", loan.TenureDays)
					}
					if !loan.DueDate.Equal(created.AddDate(0, 0, 90)) {
						t.Errorf("due_date = %v", loan.DueDate)
					}
					if loan.Status != LoanStatusOngoing || len(loan.EmiRecords) != 0 || loan.NextEmiDate != nil {
						t.Errorf("fresh loan = %+v", loan)
					}
					if loan.InterestPolicy != policy {
						t.Errorf("interest_policy = %s", loan.InterestPolicy)
					}
					if loan.EmiAmount <= 0 || loan.InstallmentCount < 1 {
						t.Errorf("emi_amount = %v installments = %d", loan.EmiAmount, loan.InstallmentCount)
					}
				})
			}
		}
	}
}

func TestToLoanInterestPolicies(t *testing.T) {
	req := &LoanRequest{LoanAmount: 10000, InterestRate: 10, TenureMonths: 6, EmiType: EmiTypeMonthly}

	flat, err := req.ToLoan(InterestPolicyFlat, "", created)
	if err != nil {
		t.Fatal(err)
	}
	if flat.Interest != 1000 || flat.TotalPayable != 10000 || flat.DisbursedAmount != 9000 {
		t.Errorf("flat = interest %v payable %v disbursed %v", flat.Interest, flat.TotalPayable, flat.DisbursedAmount)
	}
	if flat.EmiAmount != 1667 {
		t.Errorf("flat emi = %v, want 1667", flat.EmiAmount)
	}

	tenure, err := req.ToLoan(InterestPolicyTenure, "", created)
	if err != nil {
		t.Fatal(err)
	}
	if tenure.Interest != 500 || tenure.TotalPayable != 10500 || tenure.EmiAmount != 1750 {
		t.Errorf("tenure = interest %v payable %v emi %v", tenure.Interest, tenure.TotalPayable, tenure.EmiAmount)
	}

	if _, err := req.ToLoan("compound", "", created); !apperrors.Is(err, apperrors.KindConfiguration) {
		t.Errorf("unknown policy err = %v", err)
	}
}

func TestToLoanUniqueNumbers(t *testing.T) {
	req := &LoanRequest{LoanAmount: 100, InterestRate: 1, TenureDays: 1, EmiType: EmiTypeDaily}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		loan, err := req.ToLoan(InterestPolicyTenure, "", created)
		if err != nil {
			t.Fatal(err)
		}
		if seen[loan.LoanNumber] {
			t.Fatalf("duplicate loan number %s", loan.LoanNumber)
		}
		seen[loan.LoanNumber] = true
	}
}

func TestLoanRequestValidate(t *testing.T) {
	valid := LoanRequest{LoanAmount: 1000, InterestRate: 5, TenureDays: 30, EmiType: EmiTypeDaily}

	tests := []struct {
		name   string
		mutate func(r *LoanRequest)
		field  string
	}{
		{"zero amount", func(r *LoanRequest) { r.LoanAmount = 0 }, "loan_amount"},
		{"infinite amount", func(r *LoanRequest) { r.LoanAmount = math.Inf(1) }, "loan_amount"},
		{"negative rate", func(r *LoanRequest) { r.InterestRate = -1 }, "interest_rate"},
		{"no tenure", func(r *LoanRequest) { r.TenureDays = 0 }, "tenure"},
		{"negative tenure", func(r *LoanRequest) { r.TenureMonths = -2 }, "tenure"},
		{"bad emi type", func(r *LoanRequest) { r.EmiType = "Yearly" }, "emi_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			appErr, ok := err.(*apperrors.Error)
			if !ok || appErr.Kind != apperrors.KindValidation || appErr.Field != tt.field {
				t.Errorf("Validate() = %v, want validation error on %s", err, tt.field)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid request: %v", err)
	}
}

func TestInstallmentCount(t *testing.T) {
	tests := []struct {
		emiType EmiType
		days    int
		months  int
		want    int
	}{
		{EmiTypeDaily, 100, 0, 100},
		{EmiTypeWeekly, 100, 0, 15},
		{EmiTypeWeekly, 3, 0, 1},
		{EmiTypeMonthly, 90, 0, 3},
		{EmiTypeMonthly, 90, 4, 4},
		{EmiTypeMonthly, 20, 0, 1},
		{EmiTypeFullPayment, 365, 12, 1},
	}

	for _, tt := range tests {
		if got := InstallmentCount(tt.emiType, tt.days, tt.months); got != tt.want {
			t.Errorf("InstallmentCount(%s, %d, %d) = %d, want %d", tt.emiType, tt.days, tt.months, got, tt.want)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	loan := &Loan{TotalAmountLeft: 100}
	if loan.DeriveStatus() != LoanStatusOngoing {
		t.Errorf("want Ongoing")
	}
	loan.OpenDefaults = 1
	if loan.DeriveStatus() != LoanStatusDefaulted {
		t.Errorf("want Defaulted")
	}
	loan.TotalAmountLeft = 0
	if loan.DeriveStatus() != LoanStatusCompleted {
		t.Errorf("want Completed")
	}
}
