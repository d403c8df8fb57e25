package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

// PrincipalRepo is a MongoDB implementation of the repository.PrincipalRepository interface
type PrincipalRepo struct {
	coll *mongo.Collection
}

// NewPrincipalRepository creates a new PrincipalRepo
func NewPrincipalRepository(db *mongo.Database) *PrincipalRepo {
	return &PrincipalRepo{coll: db.Collection(principalsCollection)}
}

// Create inserts a principal
func (r *PrincipalRepo) Create(ctx context.Context, principal *models.Principal) (string, error) {
	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, principal); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("%s with this username or email already exists", principal.Role)
		}
		return "", fmt.Errorf("failed to create %s: %w", principal.Role, err)
	}

	return principal.ID, nil
}

// GetByID gets a principal by ID
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername gets a principal of the role by username, ignoring case
func (r *PrincipalRepo) GetByUsername(ctx context.Context, role models.Role, username string) (*models.Principal, error) {
	return r.findOne(ctx, bson.M{"role": role, "username": exactFold(username)})
}

// GetByEmail gets a principal of the role by email, ignoring case
func (r *PrincipalRepo) GetByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	return r.findOne(ctx, bson.M{"role": role, "email": exactFold(email)})
}

func (r *PrincipalRepo) findOne(ctx context.Context, filter bson.M) (*models.Principal, error) {
	var principal models.Principal
	if err := r.coll.FindOne(ctx, filter).Decode(&principal); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("principal not found")
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return &principal, nil
}

// List returns every principal of the role, oldest first
func (r *PrincipalRepo) List(ctx context.Context, role models.Role) ([]*models.Principal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}

	principals := []*models.Principal{}
	if err := cursor.All(ctx, &principals); err != nil {
		return nil, fmt.Errorf("failed to decode principals: %w", err)
	}

	return principals, nil
}

// Delete removes a principal
func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("principal %s not found", id)
	}
	return nil
}

// exactFold matches the whole value without regard to case
func exactFold(value string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(value) + "$", "$options": "i"}
}
