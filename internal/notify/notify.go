package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lending-service/internal/models"
)

// Notifier delivers ledger events to the operations team
type Notifier interface {
	Notify(ctx context.Context, event *models.Event) error
}

// Noop drops every event. It is used when no channel is configured.
type Noop struct{}

// Notify implements Notifier
func (Noop) Notify(context.Context, *models.Event) error { return nil }

// Multi fans an event out to every channel and joins their errors
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(ctx context.Context, event *models.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New combines the configured channels. With none it returns Noop.
func New(channels ...Notifier) Notifier {
	var active Multi
	for _, c := range channels {
		if c != nil {
			active = append(active, c)
		}
	}
	switch len(active) {
	case 0:
		return Noop{}
	case 1:
		return active[0]
	}
	return active
}

const timeLayout = "2006-01-02 15:04"

// Subject returns a one-line summary of the event
func Subject(e *models.Event) string {
	switch e.Kind {
	case models.EventEmiDefaulted:
		return fmt.Sprintf("EMI Default Alert: %s (%s)", e.ClientName, e.LoanNumber)
	case models.EventDefaultPaid:
		return fmt.Sprintf("Defaulted EMI Settled: %s (%s)", e.ClientName, e.LoanNumber)
	default:
		return fmt.Sprintf("EMI Collected: %s (%s)", e.ClientName, e.LoanNumber)
	}
}

// Text renders the event as a plain chat message
func Text(e *models.Event) string {
	var b strings.Builder

	switch e.Kind {
	case models.EventEmiDefaulted:
		b.WriteString("*EMI Default Alert!*\n\n")
		fmt.Fprintf(&b, "*Client:* %s\n", e.ClientName)
		fmt.Fprintf(&b, "*Loan:* %s\n", e.LoanNumber)
		fmt.Fprintf(&b, "*Amount Due:* %.2f\n", e.Amount)
		fmt.Fprintf(&b, "*Recorded At:* %s\n", e.At.Format(timeLayout))
		fmt.Fprintf(&b, "*Updated By:* %s\n", agentLabel(e))
		b.WriteString("\nPlease take necessary action.")
	default:
		if e.Kind == models.EventDefaultPaid {
			b.WriteString("*Defaulted EMI Settled!*\n")
		} else {
			b.WriteString("*EMI Collected!*\n")
		}
		fmt.Fprintf(&b, "*Client:* %s\n", e.ClientName)
		fmt.Fprintf(&b, "*Loan:* %s\n", e.LoanNumber)
		fmt.Fprintf(&b, "*Amount:* %.2f\n", e.Amount)
		fmt.Fprintf(&b, "*Amount Left:* %.2f\n", e.AmountLeft)
		fmt.Fprintf(&b, "*Time:* %s\n", e.At.Format(timeLayout))
		if link := e.Location.MapsLink(); link != "" {
			fmt.Fprintf(&b, "*Location:* %s\n", link)
		}
		fmt.Fprintf(&b, "*Collected By:* %s\n", agentLabel(e))
		fmt.Fprintf(&b, "*Payment Mode:* %s", e.PaymentMode)
	}

	return b.String()
}

func agentLabel(e *models.Event) string {
	if e.AgentName != "" {
		return e.AgentName
	}
	return e.AgentID
}
