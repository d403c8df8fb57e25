package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/pkg/apperrors"
	"lending-service/pkg/upload"
)

// ClientSvc is an implementation of the service.ClientService interface
type ClientSvc struct {
	repos   *repository.Repository
	logger  *logrus.Logger
	config  *configs.Config
	policy  models.InterestPolicy
	files   FileStore
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewClientService creates a new ClientSvc
func NewClientService(deps Dependencies) *ClientSvc {
	return &ClientSvc{
		repos:   deps.Repos,
		logger:  deps.Logger,
		config:  deps.Config,
		policy:  deps.Policy,
		files:   deps.Files,
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

// Create stores a client with all of its loans. Every loan is validated and
// the duplicate check done before any file is uploaded or anything persisted.
func (s *ClientSvc) Create(ctx context.Context, req *models.ClientCreate, files []*Attachment, createdBy string) (*models.Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repos.Client.FindDuplicate(ctx, req.ClientName, req.ClientPhoneNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate client: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("client with same name or phone number already exists")
	}

	if err := s.attach(ctx, req, files); err != nil {
		return nil, err
	}

	client, err := req.ToClient(s.policy, createdBy, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repos.Client.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	for _, loan := range client.Loans {
		s.metrics.LoansCreated.WithLabelValues(string(loan.EmiType)).Inc()
	}

	s.logger.Infof("Client created: %s with %d loans by %s", client.ID, len(client.Loans), createdBy)

	return client, nil
}

// attach uploads the files and stores their URLs on the request
func (s *ClientSvc) attach(ctx context.Context, req *models.ClientCreate, files []*Attachment) error {
	if len(files) == 0 {
		return nil
	}
	if s.files == nil {
		return apperrors.Validation("files", upload.ErrDisabled.Error())
	}

	for _, f := range files {
		url, err := s.files.Upload(ctx, f.Filename, f.ContentType, f.Body)
		if err != nil {
			if errors.Is(err, upload.ErrDisabled) {
				return apperrors.Validation("files", err.Error())
			}
			return fmt.Errorf("failed to upload %s: %w", f.Field, err)
		}

		switch f.Field {
		case FieldClientPhoto:
			req.ClientPhoto = url
		case FieldShopPhoto:
			req.ShopPhoto = url
		case FieldHousePhoto:
			req.HousePhoto = url
		case FieldDocuments:
			req.Documents = append(req.Documents, url)
		default:
			return apperrors.Validation(f.Field, "unknown file field")
		}
	}

	return nil
}

// GetByID gets a client with its loans and EMI history
func (s *ClientSvc) GetByID(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.repos.Client.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// List returns every client, newest first
func (s *ClientSvc) List(ctx context.Context) ([]*models.ClientSummary, error) {
	clients, err := s.repos.Client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return summaries(clients), nil
}

// Search matches client names case-insensitively
func (s *ClientSvc) Search(ctx context.Context, query string) ([]*models.ClientSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("query", "search query is required")
	}

	clients, err := s.repos.Client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	return summaries(clients), nil
}

// Delete removes a client together with its loans and defaults
func (s *ClientSvc) Delete(ctx context.Context, id string) error {
	if err := s.repos.Client.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	s.logger.Infof("Client deleted: %s", id)
	return nil
}

// AddLoan creates a new loan for an existing client
func (s *ClientSvc) AddLoan(ctx context.Context, clientID string, req *models.LoanRequest, createdBy string) (*models.Loan, error) {
	loan, err := req.ToLoan(s.policy, createdBy, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repos.Client.AddLoan(ctx, clientID, loan); err != nil {
		return nil, fmt.Errorf("failed to add loan: %w", err)
	}

	s.metrics.LoansCreated.WithLabelValues(string(loan.EmiType)).Inc()
	s.logger.Infof("Loan %s added to client %s", loan.LoanNumber, clientID)

	return loan, nil
}

// DeleteLoan removes a loan and the defaults recorded against it
func (s *ClientSvc) DeleteLoan(ctx context.Context, clientID, loanID string) error {
	if err := s.repos.Client.DeleteLoan(ctx, clientID, loanID); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	s.logger.Infof("Loan %s deleted from client %s", loanID, clientID)
	return nil
}

// GetSchedule projects the installments of a loan as of now
func (s *ClientSvc) GetSchedule(ctx context.Context, clientID, loanID string) (*models.EmiSchedule, error) {
	client, err := s.repos.Client.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	loan := client.FindLoan(loanID)
	if loan == nil {
		return nil, apperrors.NotFound("loan %s not found", loanID)
	}

	return models.BuildSchedule(loan, s.now()), nil
}

// ListDefaults returns the open defaults of a client
func (s *ClientSvc) ListDefaults(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error) {
	if _, err := s.repos.Client.GetByID(ctx, clientID); err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	defaults, err := s.repos.Default.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list defaults: %w", err)
	}
	return defaults, nil
}

func summaries(clients []*models.Client) []*models.ClientSummary {
	list := make([]*models.ClientSummary, 0, len(clients))
	for _, c := range clients {
		list = append(list, c.ToSummary())
	}
	return list
}
