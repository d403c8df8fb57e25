package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"lending-service/configs"
	"lending-service/internal/models"
)

const whatsAppPrefix = "whatsapp:"

type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsApp sends events to the operations number through Twilio
type WhatsApp struct {
	api    messageSender
	from   string
	to     string
	logger *logrus.Logger
}

// NewWhatsApp returns nil when Twilio is not configured
func NewWhatsApp(cfg configs.TwilioConfig, logger *logrus.Logger) *WhatsApp {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" || cfg.To == "" {
		return nil
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &WhatsApp{
		api:    client.Api,
		from:   whatsAppAddress(cfg.From),
		to:     whatsAppAddress(cfg.To),
		logger: logger,
	}
}

// Notify implements Notifier
func (w *WhatsApp) Notify(_ context.Context, event *models.Event) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(w.to)
	params.SetFrom(w.from)
	params.SetBody(Text(event))

	resp, err := w.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		w.logger.Infof("WhatsApp %s notification sent for loan %s (sid %s)", event.Kind, event.LoanNumber, *resp.Sid)
	}
	return nil
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}
