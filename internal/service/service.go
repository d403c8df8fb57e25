package service

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/notify"
	"lending-service/internal/repository"
)

// AuthService defines methods for admin and agent sessions
type AuthService interface {
	Login(ctx context.Context, role models.Role, login *models.Login) (*models.TokenResponse, error)
	SeedAdmin(ctx context.Context) error
}

// AgentService defines methods for managing field agents
type AgentService interface {
	Create(ctx context.Context, agent *models.AgentRegistration) (*models.Principal, error)
	GetByID(ctx context.Context, id string) (*models.Principal, error)
	List(ctx context.Context) ([]*models.Principal, error)
	Delete(ctx context.Context, id string) error
}

// ClientService defines methods for clients and their loans
type ClientService interface {
	Create(ctx context.Context, client *models.ClientCreate, files []*Attachment, createdBy string) (*models.Client, error)
	GetByID(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context) ([]*models.ClientSummary, error)
	Search(ctx context.Context, query string) ([]*models.ClientSummary, error)
	Delete(ctx context.Context, id string) error
	AddLoan(ctx context.Context, clientID string, loan *models.LoanRequest, createdBy string) (*models.Loan, error)
	DeleteLoan(ctx context.Context, clientID, loanID string) error
	GetSchedule(ctx context.Context, clientID, loanID string) (*models.EmiSchedule, error)
	ListDefaults(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error)
}

// CollectionService defines methods for recording EMI collections
type CollectionService interface {
	// Collect applies a collection. A non-empty idempotency key makes retries
	// of the same call return the first result.
	Collect(ctx context.Context, collection *models.Collection, idempotencyKey string) (*CollectionResult, error)
	PayDefault(ctx context.Context, payment *models.DefaultPayment) (*CollectionResult, error)
}

// AnalyticsService defines methods for the admin dashboard and agent reports
type AnalyticsService interface {
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	AgentCollections(ctx context.Context, agentID string) (*models.AgentCollections, error)
}

// IdempotencyStore remembers collection responses by key
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) ([]byte, error)
	Complete(ctx context.Context, scope, key string, response []byte) error
	Release(ctx context.Context, scope, key string) error
}

// FileStore persists uploaded client files and returns their URLs
type FileStore interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

// Attachment is an uploaded file bound to a client field
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Attachment fields accepted on client creation
const (
	FieldClientPhoto = "client_photo"
	FieldShopPhoto   = "shop_photo"
	FieldHousePhoto  = "house_photo"
	FieldDocuments   = "documents"
)

// Dependencies contains dependencies for services
type Dependencies struct {
	Repos       *repository.Repository
	Logger      *logrus.Logger
	Config      *configs.Config
	Policy      models.InterestPolicy
	Notifier    notify.Notifier
	Files       FileStore
	Idempotency IdempotencyStore
	Metrics     *metrics.Metrics
}

// Service is a composition of all services
type Service struct {
	Auth       AuthService
	Agent      AgentService
	Client     ClientService
	Collection CollectionService
	Analytics  AnalyticsService
}

// NewService creates a new service with all sub-services
func NewService(deps Dependencies) *Service {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Service{
		Auth:       NewAuthService(deps),
		Agent:      NewAgentService(deps),
		Client:     NewClientService(deps),
		Collection: NewCollectionService(deps),
		Analytics:  NewAnalyticsService(deps),
	}
}
