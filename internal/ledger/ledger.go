// Package ledger applies collection events and default settlements to a loan.
// It is pure: callers load the loan, run the ledger on it inside their atomic
// update and persist what it returns.
package ledger

import (
	"math"

	"github.com/google/uuid"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
	"lending-service/pkg/money"
)

// Outcome is the result of applying one event to a loan
type Outcome struct {
	Loan     *models.Loan
	Records  []models.EmiRecord
	Defaults []*models.DefaultedEMI
	Event    *models.Event

	// Credited is the amount added to TotalCollected
	Credited float64

	// ResolvedDefault is the default consumed by ResolveDefault
	ResolvedDefault string
}

// Update returns what the repository must commit together with the loan
func (o *Outcome) Update() *models.LoanUpdate {
	return &models.LoanUpdate{NewDefaults: o.Defaults, ResolvedDefault: o.ResolvedDefault}
}

// ApplyCollection applies a field collection to the loan in place. The loan is
// left untouched when an error is returned.
func ApplyCollection(client *models.Client, loan *models.Loan, c *models.Collection) (*Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if !money.Valid(loan.EmiAmount) || loan.EmiAmount <= 0 {
		return nil, apperrors.Configuration("loan %s has no EMI amount", loan.LoanNumber)
	}

	if loan.TotalAmountLeft <= 0 {
		return nil, apperrors.Validation("loan", "loan is already completed")
	}

	payable := money.Sub(loan.TotalAmountLeft, reserved(loan))
	remaining := installmentsLeft(payable, loan.EmiAmount)

	// A collection reaching the unreserved amount left settles the schedule:
	// only that amount is credited and the last installment absorbs rounding.
	credited := c.AmountCollected
	settles := false
	covered := int(math.Floor(c.AmountCollected / loan.EmiAmount))

	switch c.Status {
	case models.EmiStatusPaid:
		if payable <= 0 {
			return nil, apperrors.Validation("loan", "the amount left is held by open defaults, settle them first")
		}
		if c.AmountCollected > money.Mul(loan.EmiAmount, remaining) {
			return nil, apperrors.Validation("amount_collected", "exceeds the amount left on the loan")
		}
		if c.AmountCollected >= payable {
			credited = payable
			settles = true
			covered = int(math.Floor(payable / loan.EmiAmount))
		}
	default:
		if covered == 0 {
			return nil, apperrors.Validation("amount_collected", "less than one EMI, nothing to mark as defaulted")
		}
		if covered > remaining {
			return nil, apperrors.Validation("amount_collected", "covers more installments than are left on the loan")
		}
	}

	location := *c.Location

	outcome := &Outcome{Loan: loan}

	for i := 0; i < covered; i++ {
		date := loan.EmiType.Advance(c.At, i)

		if c.Status == models.EmiStatusPaid {
			outcome.Records = append(outcome.Records, models.EmiRecord{
				Date:         date,
				Amount:       loan.EmiAmount,
				Status:       models.EmiStatusPaid,
				CollectedBy:  c.CollectedBy,
				Location:     location,
				PaymentMode:  c.PaymentMode,
				ReceiverName: c.ReceiverName,
			})
			continue
		}

		outcome.Defaults = append(outcome.Defaults, &models.DefaultedEMI{
			ID:         uuid.NewString(),
			ClientID:   client.ID,
			LoanID:     loan.ID,
			LoanNumber: loan.LoanNumber,
			AmountDue:  loan.EmiAmount,
			Date:       date,
			Location:   location,
			RecordedBy: c.CollectedBy,
			Reason:     models.DefaultReasonMarked,
			CreatedAt:  c.At,
		})
	}

	kind := models.EventEmiDefaulted
	if c.Status == models.EmiStatusPaid {
		kind = models.EventEmiPaid

		remainder := money.RoundToTwoDecimal(money.Sub(credited, money.Mul(loan.EmiAmount, covered)))
		if remainder > 0 {
			status, date := models.EmiStatusPartial, c.At
			if settles {
				// final installment
				status, date = models.EmiStatusPaid, loan.EmiType.Advance(c.At, covered)
				covered++
			}
			outcome.Records = append(outcome.Records, models.EmiRecord{
				Date:         date,
				Amount:       remainder,
				Status:       status,
				CollectedBy:  c.CollectedBy,
				Location:     location,
				PaymentMode:  c.PaymentMode,
				ReceiverName: c.ReceiverName,
			})
		}

		outcome.Credited = credited
		loan.TotalCollected = money.Add(loan.TotalCollected, credited)
		loan.EmiRecords = append(loan.EmiRecords, outcome.Records...)
	} else {
		loan.OpenDefaults += len(outcome.Defaults)
	}

	loan.TotalAmountLeft = money.Sub(loan.TotalPayable, loan.TotalCollected)
	loan.PaidEmis = countPaid(loan.EmiRecords)

	if covered > 0 {
		advanceNextEmiDate(loan, covered)
	}

	loan.Status = loan.DeriveStatus()
	loan.UpdatedAt = c.At

	outcome.Event = &models.Event{
		Kind:        kind,
		ClientID:    client.ID,
		ClientName:  client.ClientName,
		LoanNumber:  loan.LoanNumber,
		Amount:      credited,
		AmountLeft:  loan.TotalAmountLeft,
		Location:    location,
		AgentID:     c.CollectedBy,
		PaymentMode: c.PaymentMode,
		At:          c.At,
	}

	return outcome, nil
}

// ResolveDefault settles an open default: the default is consumed and a Paid
// record for its amount is appended to the same loan. The last defaults of a
// loan are capped at the amount left.
func ResolveDefault(client *models.Client, loan *models.Loan, def *models.DefaultedEMI, p *models.DefaultPayment) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if def.LoanID != loan.ID {
		return nil, apperrors.NotFound("default %s does not belong to loan %s", def.ID, loan.LoanNumber)
	}

	credited := math.Max(0, math.Min(def.AmountDue, loan.TotalAmountLeft))

	record := models.EmiRecord{
		Date:         p.At,
		Amount:       credited,
		Status:       models.EmiStatusPaid,
		CollectedBy:  p.CollectedBy,
		Location:     *p.Location,
		PaymentMode:  p.PaymentMode,
		ReceiverName: p.ReceiverName,
		DefaultID:    def.ID,
	}

	loan.EmiRecords = append(loan.EmiRecords, record)
	loan.TotalCollected = money.Add(loan.TotalCollected, credited)
	loan.TotalAmountLeft = money.Sub(loan.TotalPayable, loan.TotalCollected)
	loan.PaidEmis = countPaid(loan.EmiRecords)
	if loan.OpenDefaults > 0 {
		loan.OpenDefaults--
	}
	loan.Status = loan.DeriveStatus()
	loan.UpdatedAt = p.At

	return &Outcome{
		Loan:            loan,
		Records:         []models.EmiRecord{record},
		Credited:        credited,
		ResolvedDefault: def.ID,
		Event: &models.Event{
			Kind:        models.EventDefaultPaid,
			ClientID:    client.ID,
			ClientName:  client.ClientName,
			LoanNumber:  loan.LoanNumber,
			Amount:      credited,
			AmountLeft:  loan.TotalAmountLeft,
			Location:    *p.Location,
			AgentID:     p.CollectedBy,
			PaymentMode: p.PaymentMode,
			At:          p.At,
		},
	}, nil
}

// reserved is the part of the amount left held by open defaults. Regular
// collections never pay it; PayDefault does.
func reserved(loan *models.Loan) float64 {
	return money.Mul(loan.EmiAmount, loan.OpenDefaults)
}

// installmentsLeft counts the installments needed to pay amount, the last
// one possibly short
func installmentsLeft(amount, emi float64) int {
	if amount <= 0 {
		return 0
	}
	return int(math.Ceil(amount/emi - 1e-9))
}

func countPaid(records []models.EmiRecord) int {
	paid := 0
	for _, r := range records {
		if r.Status == models.EmiStatusPaid {
			paid++
		}
	}
	return paid
}

func advanceNextEmiDate(loan *models.Loan, covered int) {
	from := loan.StartDate
	if loan.NextEmiDate != nil {
		from = *loan.NextEmiDate
	}
	next := loan.EmiType.Advance(from, covered)
	loan.NextEmiDate = &next
}
