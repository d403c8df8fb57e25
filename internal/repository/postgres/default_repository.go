package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

const defaultColumns = `id, client_id, loan_id, loan_number, amount_due, date, location_lat, location_lng,
	location_address, recorded_by, reason, created_at`

// DefaultRepo is a PostgreSQL implementation of the repository.DefaultRepository interface
type DefaultRepo struct {
	db *sql.DB
}

// NewDefaultRepository creates a new DefaultRepo
func NewDefaultRepository(db *sql.DB) *DefaultRepo {
	return &DefaultRepo{db: db}
}

// GetByID gets a defaulted EMI by ID
func (r *DefaultRepo) GetByID(ctx context.Context, id string) (*models.DefaultedEMI, error) {
	query := `SELECT ` + defaultColumns + ` FROM defaulted_emis WHERE id = $1`

	def, err := scanDefault(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("default %s not found", id)
		}
		return nil, fmt.Errorf("failed to get default: %w", err)
	}

	return def, nil
}

// ListByClient gets the open defaults of a client, oldest first
func (r *DefaultRepo) ListByClient(ctx context.Context, clientID string) ([]*models.DefaultedEMI, error) {
	query := `SELECT ` + defaultColumns + ` FROM defaulted_emis WHERE client_id = $1 ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get defaults: %w", err)
	}
	defer rows.Close()

	defaults := []*models.DefaultedEMI{}
	for rows.Next() {
		def, err := scanDefault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan default: %w", err)
		}
		defaults = append(defaults, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return defaults, nil
}

// Count returns the number of open defaults
func (r *DefaultRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM defaulted_emis`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count defaults: %w", err)
	}
	return count, nil
}

func insertDefault(ctx context.Context, q querier, def *models.DefaultedEMI) error {
	query := `INSERT INTO defaulted_emis (` + defaultColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := q.ExecContext(
		ctx,
		query,
		def.ID,
		def.ClientID,
		def.LoanID,
		def.LoanNumber,
		def.AmountDue,
		def.Date,
		def.Location.Lat,
		def.Location.Lng,
		def.Location.Address,
		def.RecordedBy,
		def.Reason,
		def.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create default: %w", err)
	}

	return nil
}

func scanDefault(s scanner) (*models.DefaultedEMI, error) {
	def := &models.DefaultedEMI{}
	err := s.Scan(
		&def.ID,
		&def.ClientID,
		&def.LoanID,
		&def.LoanNumber,
		&def.AmountDue,
		&def.Date,
		&def.Location.Lat,
		&def.Location.Lng,
		&def.Location.Address,
		&def.RecordedBy,
		&def.Reason,
		&def.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return def, nil
}
