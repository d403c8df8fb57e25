package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"lending-service/configs"
	"lending-service/internal/models"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends events to the operations mailbox over SMTP
type Email struct {
	dialer dialer
	from   string
	to     string
	logger *logrus.Logger
}

// NewEmail returns nil when SMTP or the recipient is not configured
func NewEmail(cfg configs.EmailConfig, logger *logrus.Logger) *Email {
	if cfg.SMTPHost == "" || cfg.OpsEmail == "" {
		return nil
	}

	return &Email{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SenderEmail,
		to:     cfg.OpsEmail,
		logger: logger,
	}
}

// Notify implements Notifier
func (e *Email) Notify(_ context.Context, event *models.Event) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", Subject(event))
	m.SetBody("text/html", emailBody(event))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Infof("%s notification email sent to %s for loan %s", event.Kind, e.to, event.LoanNumber)
	return nil
}

const emailRow = `
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>%s:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>`

func emailBody(e *models.Event) string {
	heading := "EMI Collected"
	switch e.Kind {
	case models.EventEmiDefaulted:
		heading = "EMI Default Alert"
	case models.EventDefaultPaid:
		heading = "Defaulted EMI Settled"
	}

	amountLabel := "Amount"
	if e.Kind == models.EventEmiDefaulted {
		amountLabel = "Amount Due"
	}

	rows := fmt.Sprintf(emailRow, "Client", html.EscapeString(e.ClientName)) +
		fmt.Sprintf(emailRow, "Loan Number", html.EscapeString(e.LoanNumber)) +
		fmt.Sprintf(emailRow, amountLabel, fmt.Sprintf("%.2f", e.Amount)) +
		fmt.Sprintf(emailRow, "Amount Left", fmt.Sprintf("%.2f", e.AmountLeft)) +
		fmt.Sprintf(emailRow, "Date", e.At.Format("2006-01-02 15:04:05")) +
		fmt.Sprintf(emailRow, "Agent", html.EscapeString(agentLabel(e)))

	if e.PaymentMode != "" {
		rows += fmt.Sprintf(emailRow, "Payment Mode", string(e.PaymentMode))
	}
	if link := e.Location.MapsLink(); link != "" {
		rows += fmt.Sprintf(emailRow, "Location", fmt.Sprintf(`<a href="%s">%s</a>`, link, link))
	}

	return fmt.Sprintf(`
	<h2>%s</h2>

	<table style="border-collapse: collapse; width: 100%%;">%s
	</table>

	<p>
	Lending Service
	</p>
	`, heading, rows)
}
