package models

import (
	"math"
	"time"

	"github.com/google/uuid"

	"lending-service/pkg/apperrors"
	"lending-service/pkg/money"
)

// EmiType defines the installment cadence of a loan
type EmiType string

const (
	EmiTypeDaily       EmiType = "Daily"
	EmiTypeWeekly      EmiType = "Weekly"
	EmiTypeMonthly     EmiType = "Monthly"
	EmiTypeFullPayment EmiType = "Full Payment"
)

// Valid reports whether t is one of the supported cadences
func (t EmiType) Valid() bool {
	switch t {
	case EmiTypeDaily, EmiTypeWeekly, EmiTypeMonthly, EmiTypeFullPayment:
		return true
	}
	return false
}

// Advance moves date forward by n installment periods.
// Full Payment loans have a single installment, so the date does not move.
func (t EmiType) Advance(date time.Time, n int) time.Time {
	switch t {
	case EmiTypeDaily:
		return money.AddDays(date, n)
	case EmiTypeWeekly:
		return money.AddDays(date, n*7)
	case EmiTypeMonthly:
		return money.AddMonths(date, n)
	default:
		return date
	}
}

// LoanStatus defines the status of a loan
type LoanStatus string

const (
	LoanStatusOngoing   LoanStatus = "Ongoing"
	LoanStatusCompleted LoanStatus = "Completed"
	LoanStatusDefaulted LoanStatus = "Defaulted"
)

// InterestPolicy selects how interest and the payable total are derived
type InterestPolicy string

const (
	// InterestPolicyFlat charges rate% of the principal once, deducted from the
	// disbursed amount. The borrower repays the principal only.
	InterestPolicyFlat InterestPolicy = "flat"
	// InterestPolicyTenure scales interest with the tenure in years and adds it
	// to the amount the borrower repays.
	InterestPolicyTenure InterestPolicy = "tenure"
)

// ParseInterestPolicy converts a configuration value into a policy
func ParseInterestPolicy(value string) (InterestPolicy, error) {
	switch InterestPolicy(value) {
	case InterestPolicyFlat, InterestPolicyTenure:
		return InterestPolicy(value), nil
	}
	return "", apperrors.Configuration("unknown interest policy %q", value)
}

// Loan is owned by exactly one client
type Loan struct {
	ID               string         `json:"id" bson:"id"`
	ClientID         string         `json:"client_id" bson:"-"`
	LoanNumber       string         `json:"unique_loan_number" bson:"loan_number"`
	LoanAmount       float64        `json:"loan_amount" bson:"loan_amount"`
	DisbursedAmount  float64        `json:"disbursed_amount" bson:"disbursed_amount"`
	Interest         float64        `json:"interest" bson:"interest"`
	InterestRate     float64        `json:"interest_rate" bson:"interest_rate"`
	InterestPolicy   InterestPolicy `json:"interest_policy" bson:"interest_policy"`
	TenureDays       int            `json:"tenure_days" bson:"tenure_days"`
	TenureMonths     int            `json:"tenure_months,omitempty" bson:"tenure_months"`
	EmiType          EmiType        `json:"emi_type" bson:"emi_type"`
	EmiAmount        float64        `json:"emi_amount" bson:"emi_amount"`
	InstallmentCount int            `json:"installment_count" bson:"installment_count"`
	TotalPayable     float64        `json:"total_payable" bson:"total_payable"`
	TotalCollected   float64        `json:"total_collected" bson:"total_collected"`
	TotalAmountLeft  float64        `json:"total_amount_left" bson:"total_amount_left"`
	PaidEmis         int            `json:"paid_emis" bson:"paid_emis"`
	OpenDefaults     int            `json:"open_defaults" bson:"open_defaults"`
	StartDate        time.Time      `json:"start_date" bson:"start_date"`
	DueDate          time.Time      `json:"due_date" bson:"due_date"`
	NextEmiDate      *time.Time     `json:"next_emi_date,omitempty" bson:"next_emi_date,omitempty"`
	Status           LoanStatus     `json:"status" bson:"status"`
	EmiRecords       []EmiRecord    `json:"emi_records" bson:"emi_records"`
	CreatedBy        string         `json:"created_by,omitempty" bson:"created_by,omitempty"`
	Version          int            `json:"-" bson:"version"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy so a failed mutation never leaks into the original
func (l *Loan) Clone() *Loan {
	c := *l
	if l.NextEmiDate != nil {
		next := *l.NextEmiDate
		c.NextEmiDate = &next
	}
	c.EmiRecords = make([]EmiRecord, len(l.EmiRecords))
	copy(c.EmiRecords, l.EmiRecords)
	return &c
}

// DeriveStatus recomputes the status from the running totals. Open defaults
// hold their share of the amount left, so a settled loan has none.
func (l *Loan) DeriveStatus() LoanStatus {
	switch {
	case l.TotalAmountLeft <= 0:
		return LoanStatusCompleted
	case l.OpenDefaults > 0:
		return LoanStatusDefaulted
	default:
		return LoanStatusOngoing
	}
}

// LoanRequest represents the terms of a new loan
type LoanRequest struct {
	LoanAmount   float64    `json:"loan_amount"`
	InterestRate float64    `json:"interest_rate"`
	TenureDays   int        `json:"tenure_days,omitempty"`
	TenureMonths int        `json:"tenure_months,omitempty"`
	EmiType      EmiType    `json:"emi_type"`
	StartDate    *time.Time `json:"start_date,omitempty"`
}

// Validate validates loan terms
func (r *LoanRequest) Validate() error {
	if !money.Valid(r.LoanAmount) || r.LoanAmount <= 0 {
		return apperrors.Validation("loan_amount", "must be a positive number")
	}

	if !money.Valid(r.InterestRate) || r.InterestRate <= 0 {
		return apperrors.Validation("interest_rate", "must be a positive number")
	}

	if r.TenureDays < 0 || r.TenureMonths < 0 {
		return apperrors.Validation("tenure", "tenure cannot be negative")
	}

	if r.TenureDays == 0 && r.TenureMonths == 0 {
		return apperrors.Validation("tenure", "either tenure_days or tenure_months must be provided")
	}

	if !r.EmiType.Valid() {
		return apperrors.Validation("emi_type", "must be one of Daily, Weekly, Monthly, Full Payment")
	}

	return nil
}

// ToLoan builds a fully populated loan from validated terms
func (r *LoanRequest) ToLoan(policy InterestPolicy, createdBy string, now time.Time) (*Loan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	startDate := now
	if r.StartDate != nil && !r.StartDate.IsZero() {
		startDate = *r.StartDate
	}

	// Months-only tenures are approximated as 30-day months
	tenureDays := r.TenureDays
	if tenureDays == 0 {
		tenureDays = r.TenureMonths * 30
	}

	var interest, totalPayable float64
	switch policy {
	case InterestPolicyFlat:
		interest = money.Interest(r.LoanAmount, r.InterestRate, 1)
		totalPayable = r.LoanAmount
	case InterestPolicyTenure:
		interest = money.Interest(r.LoanAmount, r.InterestRate, TenureYears(r.TenureDays, r.TenureMonths))
		totalPayable = r.LoanAmount + interest
	default:
		return nil, apperrors.Configuration("unknown interest policy %q", policy)
	}

	installments := InstallmentCount(r.EmiType, tenureDays, r.TenureMonths)

	return &Loan{
		ID:               uuid.NewString(),
		LoanNumber:       uuid.NewString(),
		LoanAmount:       r.LoanAmount,
		DisbursedAmount:  r.LoanAmount - interest,
		Interest:         interest,
		InterestRate:     r.InterestRate,
		InterestPolicy:   policy,
		TenureDays:       tenureDays,
		TenureMonths:     r.TenureMonths,
		EmiType:          r.EmiType,
		EmiAmount:        money.Round(totalPayable / float64(installments)),
		InstallmentCount: installments,
		TotalPayable:     totalPayable,
		TotalCollected:   0,
		TotalAmountLeft:  totalPayable,
		StartDate:        startDate,
		DueDate:          money.AddDays(startDate, tenureDays),
		Status:           LoanStatusOngoing,
		EmiRecords:       []EmiRecord{},
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// TenureYears expresses the tenure in years, preferring months when given
func TenureYears(tenureDays, tenureMonths int) float64 {
	if tenureMonths > 0 {
		return float64(tenureMonths) / 12
	}
	return float64(tenureDays) / 365
}

// InstallmentCount returns the number of EMI periods for a cadence. It is never
// less than one.
func InstallmentCount(emiType EmiType, tenureDays, tenureMonths int) int {
	var count int
	switch emiType {
	case EmiTypeDaily:
		count = tenureDays
	case EmiTypeWeekly:
		count = int(math.Ceil(float64(tenureDays) / 7))
	case EmiTypeMonthly:
		count = tenureMonths
		if count == 0 {
			count = tenureDays / 30
		}
	case EmiTypeFullPayment:
		count = 1
	}

	if count < 1 {
		count = 1
	}
	return count
}
