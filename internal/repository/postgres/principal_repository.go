package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

const principalColumns = `id, role, username, email, full_name, father_name, photo, password_hash, created_at`

// uniqueViolation is the PostgreSQL error code for unique_violation
const uniqueViolation = "23505"

// PrincipalRepo is a PostgreSQL implementation of the repository.PrincipalRepository interface
type PrincipalRepo struct {
	db *sql.DB
}

// NewPrincipalRepository creates a new PrincipalRepo
func NewPrincipalRepository(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db}
}

// Create creates a new admin or agent in the database
func (r *PrincipalRepo) Create(ctx context.Context, principal *models.Principal) (string, error) {
	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}

	query := `INSERT INTO principals (id, role, username, email, full_name, father_name, photo, password_hash)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		principal.ID,
		principal.Role,
		principal.Username,
		principal.Email,
		principal.FullName,
		principal.FatherName,
		principal.Photo,
		principal.PassHash,
	).Scan(&principal.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", apperrors.Conflict("%s with this username or email already exists", principal.Role)
		}
		return "", fmt.Errorf("failed to create %s: %w", principal.Role, err)
	}

	return principal.ID, nil
}

// GetByID gets a principal by ID
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByUsername gets a principal of the role by username
func (r *PrincipalRepo) GetByUsername(ctx context.Context, role models.Role, username string) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE role = $1 AND LOWER(username) = LOWER($2)`
	return r.getOne(ctx, query, role, username)
}

// GetByEmail gets a principal of the role by email
func (r *PrincipalRepo) GetByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE role = $1 AND LOWER(email) = LOWER($2)`
	return r.getOne(ctx, query, role, email)
}

func (r *PrincipalRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.Principal, error) {
	principal := &models.Principal{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&principal.ID,
		&principal.Role,
		&principal.Username,
		&principal.Email,
		&principal.FullName,
		&principal.FatherName,
		&principal.Photo,
		&principal.PassHash,
		&principal.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("principal not found")
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	return principal, nil
}

// List returns every principal of the role
func (r *PrincipalRepo) List(ctx context.Context, role models.Role) ([]*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE role = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	principals := []*models.Principal{}
	for rows.Next() {
		principal := &models.Principal{}
		err := rows.Scan(
			&principal.ID,
			&principal.Role,
			&principal.Username,
			&principal.Email,
			&principal.FullName,
			&principal.FatherName,
			&principal.Photo,
			&principal.PassHash,
			&principal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, principal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return principals, nil
}

// Delete deletes a principal
func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return apperrors.NotFound("principal %s not found", id)
	}

	return nil
}
