package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

// DefaultRepo is a MongoDB implementation of the repository.DefaultRepository interface
type DefaultRepo struct {
	coll *mongo.Collection
}

// NewDefaultRepository creates a new DefaultRepo
func NewDefaultRepository(db *mongo.Database) *DefaultRepo {
	return &DefaultRepo{coll: db.Collection(defaultsCollection)}
}

// GetByID gets a defaulted EMI
func (r *DefaultRepo) GetByID(ctx context.Context, id string) (*models.DefaultedEMI, error) {
	var def models.DefaultedEMI
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&def); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("default %s not found", id)
		}
		return nil, fmt.Errorf("failed to get default: %w", err)
	}
	return &def, nil
}

// ListByClient returns the open defaults of a client, oldest first
func (r *DefaultRepo) ListByClient(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"client_id": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get defaults: %w", err)
	}

	defaults := []*models.DefaultedEMI{}
	if err := cursor.All(ctx, &defaults); err != nil {
		return nil, fmt.Errorf("failed to decode defaults: %w", err)
	}
	return defaults, nil
}

// Count returns the number of open defaults
func (r *DefaultRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count defaults: %w", err)
	}
	return int(n), nil
}
