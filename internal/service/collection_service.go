package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/cache"
	"lending-service/internal/ledger"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/notify"
	"lending-service/internal/repository"
	"lending-service/pkg/apperrors"
)

const notifyTimeout = 30 * time.Second

// CollectionResult is returned for a collection or default payment
type CollectionResult struct {
	Loan     *models.Loan           `json:"loan"`
	Records  []models.EmiRecord     `json:"records"`
	Defaults []*models.DefaultedEMI `json:"defaults,omitempty"`
	Replayed bool                   `json:"replayed,omitempty"`
}

// CollectionSvc is an implementation of the service.CollectionService interface
type CollectionSvc struct {
	repos       *repository.Repository
	logger      *logrus.Logger
	config      *configs.Config
	notifier    notify.Notifier
	idempotency IdempotencyStore
	metrics     *metrics.Metrics
}

// NewCollectionService creates a new CollectionSvc
func NewCollectionService(deps Dependencies) *CollectionSvc {
	return &CollectionSvc{
		repos:       deps.Repos,
		logger:      deps.Logger,
		config:      deps.Config,
		notifier:    deps.Notifier,
		idempotency: deps.Idempotency,
		metrics:     deps.Metrics,
	}
}

// Collect records a field collection against one loan
func (s *CollectionSvc) Collect(ctx context.Context, c *models.Collection, idempotencyKey string) (result *CollectionResult, err error) {
	if idempotencyKey != "" && s.idempotency != nil {
		scope := idempotencyScope(c)
		stored, beginErr := s.idempotency.Begin(ctx, scope, idempotencyKey)
		if beginErr != nil {
			if errors.Is(beginErr, cache.ErrInFlight) {
				return nil, apperrors.Conflict("a request with this idempotency key is in progress")
			}
			return nil, fmt.Errorf("failed to check idempotency key: %w", beginErr)
		}
		if stored != nil {
			var replay CollectionResult
			if jsonErr := json.Unmarshal(stored, &replay); jsonErr != nil {
				return nil, fmt.Errorf("failed to decode stored response: %w", jsonErr)
			}
			replay.Replayed = true
			s.logger.Infof("Replayed collection for key %s by %s", idempotencyKey, c.CollectedBy)
			return &replay, nil
		}

		defer func() {
			if err != nil {
				if relErr := s.idempotency.Release(context.Background(), scope, idempotencyKey); relErr != nil {
					s.logger.Warnf("Failed to release idempotency key %s: %v", idempotencyKey, relErr)
				}
				return
			}
			body, mErr := json.Marshal(result)
			if mErr != nil {
				s.logger.Warnf("Failed to encode response for key %s: %v", idempotencyKey, mErr)
				return
			}
			if cErr := s.idempotency.Complete(context.Background(), scope, idempotencyKey, body); cErr != nil {
				s.logger.Warnf("Failed to store response for key %s: %v", idempotencyKey, cErr)
			}
		}()
	}

	var outcome *ledger.Outcome
	_, loan, err := s.repos.Client.UpdateLoan(ctx, c.ClientID, c.LoanID, func(client *models.Client, loan *models.Loan) (*models.LoanUpdate, error) {
		o, err := ledger.ApplyCollection(client, loan, c)
		if err != nil {
			return nil, err
		}
		outcome = o
		return o.Update(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect emi: %w", err)
	}

	s.metrics.Collections.WithLabelValues(string(c.Status)).Inc()
	s.metrics.AmountCollected.Add(outcome.Credited)
	s.metrics.DefaultsRecorded.Add(float64(len(outcome.Defaults)))

	s.logger.Infof("EMI %s on loan %s: %.2f collected, %.2f credited by %s, %.2f left",
		c.Status, loan.LoanNumber, c.AmountCollected, outcome.Credited, c.CollectedBy, loan.TotalAmountLeft)

	s.dispatch(outcome.Event)

	return &CollectionResult{
		Loan:     loan,
		Records:  nonNilRecords(outcome.Records),
		Defaults: outcome.Defaults,
	}, nil
}

// PayDefault settles an open default and credits its amount to the loan
func (s *CollectionSvc) PayDefault(ctx context.Context, p *models.DefaultPayment) (*CollectionResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	def, err := s.repos.Default.GetByID(ctx, p.DefaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to get default: %w", err)
	}

	var outcome *ledger.Outcome
	_, loan, err := s.repos.Client.UpdateLoan(ctx, def.ClientID, def.LoanID, func(client *models.Client, loan *models.Loan) (*models.LoanUpdate, error) {
		o, err := ledger.ResolveDefault(client, loan, def, p)
		if err != nil {
			return nil, err
		}
		outcome = o
		return o.Update(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pay default: %w", err)
	}

	s.metrics.DefaultsResolved.Inc()
	s.metrics.AmountCollected.Add(outcome.Credited)

	s.logger.Infof("Default %s on loan %s paid: %.2f by %s", def.ID, loan.LoanNumber, outcome.Credited, p.CollectedBy)

	s.dispatch(outcome.Event)

	return &CollectionResult{Loan: loan, Records: outcome.Records}, nil
}

// dispatch notifies the operations team without blocking the response
func (s *CollectionSvc) dispatch(event *models.Event) {
	if event == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if agent, err := s.repos.Principal.GetByID(ctx, event.AgentID); err == nil {
			event.AgentName = agent.FullName
		}

		if err := s.notifier.Notify(ctx, event); err != nil {
			s.metrics.Notifications.WithLabelValues("failed").Inc()
			s.logger.Warnf("Failed to send %s notification for loan %s: %v", event.Kind, event.LoanNumber, err)
			return
		}
		s.metrics.Notifications.WithLabelValues("sent").Inc()
	}()
}

// idempotencyScope keys stored responses by agent and loan
func idempotencyScope(c *models.Collection) string {
	return c.CollectedBy + ":" + c.LoanID
}

func nonNilRecords(records []models.EmiRecord) []models.EmiRecord {
	if records == nil {
		return []models.EmiRecord{}
	}
	return records
}
