package models

import (
	"fmt"
	"strings"
	"time"

	"lending-service/pkg/apperrors"
	"lending-service/pkg/money"
)

// EmiStatus defines the status of a single EMI record or collection event
type EmiStatus string

const (
	EmiStatusPaid      EmiStatus = "Paid"
	EmiStatusDefaulted EmiStatus = "Defaulted"
	// EmiStatusPartial records the part of a collection that did not cover a
	// whole installment
	EmiStatusPartial EmiStatus = "Partial"
)

// PaymentMode defines how an EMI was paid
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "Cash"
	PaymentModeCheque PaymentMode = "Cheque"
	PaymentModeOnline PaymentMode = "Online"
)

// Valid reports whether m is a supported payment mode
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCheque, PaymentModeOnline:
		return true
	}
	return false
}

// Location is a captured geolocation
type Location struct {
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
	Address string  `json:"address,omitempty" bson:"address,omitempty"`
}

// IsZero reports whether the location is the (0,0) sentinel sent by clients
// that failed to capture coordinates
func (l *Location) IsZero() bool {
	return l == nil || (l.Lat == 0 && l.Lng == 0)
}

// MapsLink returns a Google Maps link for the coordinates
func (l *Location) MapsLink() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", l.Lat, l.Lng)
}

// EmiRecord is an immutable entry in a loan's EMI history
type EmiRecord struct {
	Date         time.Time   `json:"date" bson:"date"`
	Amount       float64     `json:"amount_collected" bson:"amount"`
	Status       EmiStatus   `json:"status" bson:"status"`
	CollectedBy  string      `json:"collected_by" bson:"collected_by"`
	Location     Location    `json:"location" bson:"location"`
	PaymentMode  PaymentMode `json:"payment_mode" bson:"payment_mode"`
	ReceiverName string      `json:"receiver_name,omitempty" bson:"receiver_name,omitempty"`
	DefaultID    string      `json:"default_id,omitempty" bson:"default_id,omitempty"`
}

// DefaultedEMI is a missed installment recorded outside the loan
type DefaultedEMI struct {
	ID         string    `json:"id" bson:"_id"`
	ClientID   string    `json:"client_id" bson:"client_id"`
	LoanID     string    `json:"loan_id" bson:"loan_id"`
	LoanNumber string    `json:"loan_number" bson:"loan_number"`
	AmountDue  float64   `json:"amount_due" bson:"amount_due"`
	Date       time.Time `json:"date" bson:"date"`
	Location   Location  `json:"location" bson:"location"`
	RecordedBy string    `json:"recorded_by" bson:"recorded_by"`
	Reason     string    `json:"reason" bson:"reason"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// DefaultReasonMarked is the reason attached to defaults recorded by field agents
const DefaultReasonMarked = "Marked Default"

// CollectionRequest is the body of an EMI collection call
type CollectionRequest struct {
	AmountCollected float64     `json:"amount_collected"`
	Status          EmiStatus   `json:"status"`
	Location        *Location   `json:"location"`
	PaymentMode     PaymentMode `json:"payment_mode"`
	ReceiverName    string      `json:"receiver_name,omitempty"`
}

// Collection is one field collection event against one loan
type Collection struct {
	ClientID        string
	LoanID          string
	AmountCollected float64
	Status          EmiStatus
	Location        *Location
	PaymentMode     PaymentMode
	ReceiverName    string
	CollectedBy     string
	At              time.Time
}

// ToCollection attaches the identity of the loan and the agent to the request
func (r *CollectionRequest) ToCollection(clientID, loanID, agentID string, at time.Time) *Collection {
	return &Collection{
		ClientID:        clientID,
		LoanID:          loanID,
		AmountCollected: r.AmountCollected,
		Status:          r.Status,
		Location:        r.Location,
		PaymentMode:     r.PaymentMode,
		ReceiverName:    strings.TrimSpace(r.ReceiverName),
		CollectedBy:     agentID,
		At:              at,
	}
}

// Validate checks the event before any ledger state is touched
func (c *Collection) Validate() error {
	if !money.Valid(c.AmountCollected) || c.AmountCollected <= 0 {
		return apperrors.Validation("amount_collected", "must be a positive number")
	}

	if c.Status != EmiStatusPaid && c.Status != EmiStatusDefaulted {
		return apperrors.Validation("status", "must be Paid or Defaulted")
	}

	if c.Location.IsZero() {
		return apperrors.Validation("location", "location required")
	}

	if c.PaymentMode == "" {
		c.PaymentMode = PaymentModeCash
	}
	if !c.PaymentMode.Valid() {
		return apperrors.Validation("payment_mode", "must be Cash, Cheque or Online")
	}

	if c.PaymentMode != PaymentModeCash && c.ReceiverName == "" {
		return apperrors.Validation("receiver_name", "receiver name required for non-cash")
	}

	return nil
}

// PayDefaultRequest is the body of a call that settles a defaulted EMI
type PayDefaultRequest struct {
	Location     *Location   `json:"location"`
	PaymentMode  PaymentMode `json:"payment_mode"`
	ReceiverName string      `json:"receiver_name,omitempty"`
}

// DefaultPayment settles one DefaultedEMI
type DefaultPayment struct {
	DefaultID    string
	Location     *Location
	PaymentMode  PaymentMode
	ReceiverName string
	CollectedBy  string
	At           time.Time
}

// Validate applies the same field rules as a collection
func (p *DefaultPayment) Validate() error {
	if p.Location.IsZero() {
		return apperrors.Validation("location", "location required")
	}
	if p.PaymentMode == "" {
		p.PaymentMode = PaymentModeCash
	}
	if !p.PaymentMode.Valid() {
		return apperrors.Validation("payment_mode", "must be Cash, Cheque or Online")
	}
	if p.PaymentMode != PaymentModeCash && strings.TrimSpace(p.ReceiverName) == "" {
		return apperrors.Validation("receiver_name", "receiver name required for non-cash")
	}
	return nil
}

// LoanUpdate is what a ledger operation commits together with the mutated loan
type LoanUpdate struct {
	NewDefaults     []*DefaultedEMI
	ResolvedDefault string
}

// LoanMutation runs against a loan inside a repository's atomic update. The
// client and loan are private copies; returning an error discards them.
type LoanMutation func(client *Client, loan *Loan) (*LoanUpdate, error)

// EventKind identifies what a notification is about
type EventKind string

const (
	EventEmiPaid      EventKind = "EMI_PAID"
	EventEmiDefaulted EventKind = "EMI_DEFAULTED"
	EventDefaultPaid  EventKind = "DEFAULT_PAID"
)

// Event describes a committed ledger change for the notification channel
type Event struct {
	Kind        EventKind   `json:"kind"`
	ClientID    string      `json:"client_id"`
	ClientName  string      `json:"client_name"`
	LoanNumber  string      `json:"loan_number"`
	Amount      float64     `json:"amount"`
	AmountLeft  float64     `json:"amount_left"`
	Location    Location    `json:"location"`
	AgentID     string      `json:"agent_id"`
	AgentName   string      `json:"agent_name,omitempty"`
	PaymentMode PaymentMode `json:"payment_mode,omitempty"`
	At          time.Time   `json:"at"`
}
