package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

// maxUpdateAttempts bounds optimistic retries on one loan
const maxUpdateAttempts = 10

var errStaleLoan = errors.New("loan version changed")

// ClientRepo is a MongoDB implementation of the repository.ClientRepository interface
type ClientRepo struct {
	client   *mongo.Client
	clients  *mongo.Collection
	defaults *mongo.Collection
}

// NewClientRepository creates a new ClientRepo
func NewClientRepository(client *mongo.Client, db *mongo.Database) *ClientRepo {
	return &ClientRepo{
		client:   client,
		clients:  db.Collection(clientsCollection),
		defaults: db.Collection(defaultsCollection),
	}
}

// Create inserts the client document with its embedded loans
func (r *ClientRepo) Create(ctx context.Context, client *models.Client) error {
	if client.Loans == nil {
		client.Loans = []*models.Loan{}
	}
	if _, err := r.clients.InsertOne(ctx, client); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("client %s already exists", client.ID)
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetByID gets a client document
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := r.clients.FindOne(ctx, bson.M{"_id": id}).Decode(&client); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("client %s not found", id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	attachClientID(&client)
	return &client, nil
}

// List returns every client, newest first
func (r *ClientRepo) List(ctx context.Context) ([]*models.Client, error) {
	return r.find(ctx, bson.M{})
}

// Search matches client names with a case-insensitive pattern
func (r *ClientRepo) Search(ctx context.Context, query string) ([]*models.Client, error) {
	pattern := regexp.QuoteMeta(strings.TrimSpace(query))
	return r.find(ctx, bson.M{"client_name": bson.M{"$regex": pattern, "$options": "i"}})
}

func (r *ClientRepo) find(ctx context.Context, filter bson.M) ([]*models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.clients.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get clients: %w", err)
	}

	clients := []*models.Client{}
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode clients: %w", err)
	}
	for _, client := range clients {
		attachClientID(client)
	}

	return clients, nil
}

// FindDuplicate returns a client with the exact name or any shared phone number
func (r *ClientRepo) FindDuplicate(ctx context.Context, name string, phones []string) (*models.Client, error) {
	filter := bson.M{"$or": []bson.M{
		{"client_name": name},
		{"client_phone_numbers": bson.M{"$in": phones}},
	}}

	var client models.Client
	if err := r.clients.FindOne(ctx, filter).Decode(&client); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate client: %w", err)
	}
	return &client, nil
}

// Delete removes the client document and its defaults together
func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := r.clients.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		if res.DeletedCount == 0 {
			return apperrors.NotFound("client %s not found", id)
		}
		if _, err := r.defaults.DeleteMany(sc, bson.M{"client_id": id}); err != nil {
			return fmt.Errorf("failed to delete client defaults: %w", err)
		}
		return nil
	})
}

// AddLoan pushes a loan onto the client's loans
func (r *ClientRepo) AddLoan(ctx context.Context, clientID string, loan *models.Loan) error {
	loan.ClientID = clientID
	res, err := r.clients.UpdateOne(ctx,
		bson.M{"_id": clientID},
		bson.M{"$push": bson.M{"loans": loan}},
	)
	if err != nil {
		return fmt.Errorf("failed to add loan: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("client %s not found", clientID)
	}
	return nil
}

// DeleteLoan pulls a loan from the client and removes its defaults
func (r *ClientRepo) DeleteLoan(ctx context.Context, clientID, loanID string) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := r.clients.UpdateOne(sc,
			bson.M{"_id": clientID, "loans.id": loanID},
			bson.M{"$pull": bson.M{"loans": bson.M{"id": loanID}}},
		)
		if err != nil {
			return fmt.Errorf("failed to delete loan: %w", err)
		}
		if res.MatchedCount == 0 {
			return apperrors.NotFound("loan %s not found", loanID)
		}
		if _, err := r.defaults.DeleteMany(sc, bson.M{"loan_id": loanID}); err != nil {
			return fmt.Errorf("failed to delete loan defaults: %w", err)
		}
		return nil
	})
}

// UpdateLoan applies fn with optimistic concurrency on the embedded loan's
// version. The loan write and the default inserts and deletes share one
// transaction; a stale version reloads the document and runs fn again.
func (r *ClientRepo) UpdateLoan(ctx context.Context, clientID, loanID string, fn models.LoanMutation) (*models.Client, *models.Loan, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		client, err := r.GetByID(ctx, clientID)
		if err != nil {
			return nil, nil, err
		}

		loan := client.FindLoan(loanID)
		if loan == nil {
			return nil, nil, apperrors.NotFound("loan %s not found", loanID)
		}

		version := loan.Version
		update, err := fn(client, loan)
		if err != nil {
			return nil, nil, err
		}
		loan.Version = version + 1

		err = r.withTransaction(ctx, func(sc mongo.SessionContext) error {
			return r.commitLoan(sc, clientID, loan, version, update)
		})
		if errors.Is(err, errStaleLoan) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		return client, loan, nil
	}

	return nil, nil, apperrors.Conflict("loan %s is being updated concurrently, retry", loanID)
}

func (r *ClientRepo) commitLoan(sc mongo.SessionContext, clientID string, loan *models.Loan, version int, update *models.LoanUpdate) error {
	filter := bson.M{
		"_id":   clientID,
		"loans": bson.M{"$elemMatch": bson.M{"id": loan.ID, "version": version}},
	}

	res, err := r.clients.UpdateOne(sc, filter, bson.M{"$set": bson.M{"loans.$": loan}})
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if res.MatchedCount == 0 {
		return errStaleLoan
	}

	if update == nil {
		return nil
	}

	if update.ResolvedDefault != "" {
		res, err := r.defaults.DeleteOne(sc, bson.M{"_id": update.ResolvedDefault, "loan_id": loan.ID})
		if err != nil {
			return fmt.Errorf("failed to resolve default: %w", err)
		}
		if res.DeletedCount == 0 {
			return apperrors.NotFound("default %s not found", update.ResolvedDefault)
		}
	}

	if len(update.NewDefaults) > 0 {
		docs := make([]interface{}, 0, len(update.NewDefaults))
		for _, d := range update.NewDefaults {
			docs = append(docs, d)
		}
		if _, err := r.defaults.InsertMany(sc, docs); err != nil {
			return fmt.Errorf("failed to create defaults: %w", err)
		}
	}

	return nil
}

func (r *ClientRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// attachClientID fills the owner reference, which is implied by embedding
func attachClientID(client *models.Client) {
	if client.Loans == nil {
		client.Loans = []*models.Loan{}
	}
	for _, loan := range client.Loans {
		loan.ClientID = client.ID
		if loan.EmiRecords == nil {
			loan.EmiRecords = []models.EmiRecord{}
		}
	}
}
