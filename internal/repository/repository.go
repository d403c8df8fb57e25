package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"lending-service/internal/models"
	"lending-service/internal/repository/memory"
	mongorepo "lending-service/internal/repository/mongo"
	"lending-service/internal/repository/postgres"
)

// PrincipalRepository defines methods for admin and agent accounts
type PrincipalRepository interface {
	Create(ctx context.Context, principal *models.Principal) (string, error)
	GetByID(ctx context.Context, id string) (*models.Principal, error)
	GetByUsername(ctx context.Context, role models.Role, username string) (*models.Principal, error)
	GetByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error)
	List(ctx context.Context, role models.Role) ([]*models.Principal, error)
	Delete(ctx context.Context, id string) error
}

// ClientRepository defines methods for clients and the loans they own
type ClientRepository interface {
	// Create stores the client together with all of its loans, or nothing
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	// List returns every client with loans and EMI records for read-only use
	List(ctx context.Context) ([]*models.Client, error)
	// Search matches client names case-insensitively
	Search(ctx context.Context, query string) ([]*models.Client, error)
	// FindDuplicate returns a client with the exact name or any of the phone
	// numbers, or nil when there is none
	FindDuplicate(ctx context.Context, name string, phones []string) (*models.Client, error)
	// Delete removes the client, its loans and its defaults
	Delete(ctx context.Context, id string) error

	AddLoan(ctx context.Context, clientID string, loan *models.Loan) error
	DeleteLoan(ctx context.Context, clientID, loanID string) error
	// UpdateLoan serialises read-modify-write on one loan. The mutation's
	// loan, new defaults and resolved default are committed together.
	UpdateLoan(ctx context.Context, clientID, loanID string, fn models.LoanMutation) (*models.Client, *models.Loan, error)
}

// DefaultRepository defines read access to defaulted EMIs. Writes happen
// through ClientRepository.UpdateLoan.
type DefaultRepository interface {
	GetByID(ctx context.Context, id string) (*models.DefaultedEMI, error)
	ListByClient(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error)
	Count(ctx context.Context) (int, error)
}

// Repository is a composition of all repositories
type Repository struct {
	Principal PrincipalRepository
	Client    ClientRepository
	Default   DefaultRepository

	close func(ctx context.Context) error
}

// NewPostgresRepository creates a repository backed by PostgreSQL
func NewPostgresRepository(db *sql.DB) *Repository {
	return &Repository{
		Principal: postgres.NewPrincipalRepository(db),
		Client:    postgres.NewClientRepository(db),
		Default:   postgres.NewDefaultRepository(db),
		close: func(context.Context) error {
			return db.Close()
		},
	}
}

// NewMongoRepository creates a repository backed by MongoDB
func NewMongoRepository(client *mongo.Client, database string) *Repository {
	db := client.Database(database)
	return &Repository{
		Principal: mongorepo.NewPrincipalRepository(db),
		Client:    mongorepo.NewClientRepository(client, db),
		Default:   mongorepo.NewDefaultRepository(db),
		close:     client.Disconnect,
	}
}

// NewMemoryRepository creates a repository that keeps everything in process
func NewMemoryRepository() *Repository {
	store := memory.NewStore()
	return &Repository{
		Principal: store.Principals(),
		Client:    store.Clients(),
		Default:   store.Defaults(),
		close:     func(context.Context) error { return nil },
	}
}

// Close releases the underlying connection
func (r *Repository) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	if err := r.close(ctx); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}
