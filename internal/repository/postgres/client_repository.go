package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

const clientColumns = `id, client_name, client_phone_numbers, email, temporary_address, permanent_address,
	shop_address, house_address, client_photo, shop_photo, house_photo, documents, referal_name,
	referal_number, google_maps_link, location_lat, location_lng, location_address, created_by,
	created_at, updated_at`

const loanColumns = `id, client_id, loan_number, loan_amount, disbursed_amount, interest, interest_rate,
	interest_policy, tenure_days, tenure_months, emi_type, emi_amount, installment_count, total_payable,
	total_collected, total_amount_left, paid_emis, open_defaults, start_date, due_date, next_emi_date,
	status, emi_records, created_by, version, created_at, updated_at`

// foreignKeyViolation is the PostgreSQL error code for foreign_key_violation
const foreignKeyViolation = "23503"

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// ClientRepo is a PostgreSQL implementation of the repository.ClientRepository interface
type ClientRepo struct {
	db *sql.DB
}

// NewClientRepository creates a new ClientRepo
func NewClientRepository(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// Create creates a client and all of its loans in one transaction
func (r *ClientRepo) Create(ctx context.Context, client *models.Client) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO clients (` + clientColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	lat, lng, address := nullLocation(client.Location)
	_, err = tx.ExecContext(
		ctx,
		query,
		client.ID,
		client.ClientName,
		pq.Array(client.ClientPhoneNumbers),
		client.Email,
		client.TemporaryAddress,
		client.PermanentAddress,
		client.ShopAddress,
		client.HouseAddress,
		client.ClientPhoto,
		client.ShopPhoto,
		client.HousePhoto,
		pq.Array(nonNil(client.Documents)),
		client.ReferralName,
		client.ReferralNumber,
		client.GoogleMapsLink,
		lat,
		lng,
		address,
		client.CreatedBy,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	for _, loan := range client.Loans {
		loan.ClientID = client.ID
		if err = insertLoan(ctx, tx, loan); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client: %w", err)
	}

	return nil
}

// GetByID gets a client with its loans
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	return getClient(ctx, r.db, id)
}

// List returns every client with loans, newest first
func (r *ClientRepo) List(ctx context.Context) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY created_at DESC`
	return r.queryClients(ctx, query)
}

// Search returns clients whose name contains the query, ignoring case
func (r *ClientRepo) Search(ctx context.Context, query string) ([]*models.Client, error) {
	q := `SELECT ` + clientColumns + ` FROM clients WHERE client_name ILIKE $1 ORDER BY created_at DESC`
	return r.queryClients(ctx, q, "%"+escapeLike(strings.TrimSpace(query))+"%")
}

// FindDuplicate returns a client with the exact name or any shared phone number
func (r *ClientRepo) FindDuplicate(ctx context.Context, name string, phones []string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients
			  WHERE client_name = $1 OR client_phone_numbers && $2 LIMIT 1`

	client, err := scanClient(r.db.QueryRowContext(ctx, query, name, pq.Array(phones)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate client: %w", err)
	}

	return client, nil
}

// Delete deletes a client; loans and defaults are removed by cascade
func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectOne(result, apperrors.NotFound("client %s not found", id))
}

// AddLoan adds a loan to an existing client
func (r *ClientRepo) AddLoan(ctx context.Context, clientID string, loan *models.Loan) error {
	loan.ClientID = clientID
	err := insertLoan(ctx, r.db, loan)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return apperrors.NotFound("client %s not found", clientID)
	}
	return err
}

// DeleteLoan deletes a loan; its defaults are removed by cascade
func (r *ClientRepo) DeleteLoan(ctx context.Context, clientID, loanID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1 AND client_id = $2`, loanID, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	return expectOne(result, apperrors.NotFound("loan %s not found", loanID))
}

// UpdateLoan locks the loan row, runs fn and writes the loan together with the
// defaults it created or resolved
func (r *ClientRepo) UpdateLoan(ctx context.Context, clientID, loanID string, fn models.LoanMutation) (client *models.Client, loan *models.Loan, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 AND client_id = $2 FOR UPDATE`
	loan, err = scanLoan(tx.QueryRowContext(ctx, query, loanID, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperrors.NotFound("loan %s not found", loanID)
		}
		return nil, nil, fmt.Errorf("failed to lock loan: %w", err)
	}

	client, err = getClient(ctx, tx, clientID)
	if err != nil {
		return nil, nil, err
	}
	for i := range client.Loans {
		if client.Loans[i].ID == loan.ID {
			client.Loans[i] = loan
		}
	}

	update, err := fn(client, loan)
	if err != nil {
		return nil, nil, err
	}

	loan.Version++
	if err = updateLoanRow(ctx, tx, loan); err != nil {
		return nil, nil, err
	}

	if update != nil {
		if update.ResolvedDefault != "" {
			var result sql.Result
			result, err = tx.ExecContext(ctx, `DELETE FROM defaulted_emis WHERE id = $1 AND loan_id = $2`, update.ResolvedDefault, loan.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve default: %w", err)
			}
			if err = expectOne(result, apperrors.NotFound("default %s not found", update.ResolvedDefault)); err != nil {
				return nil, nil, err
			}
		}

		for _, d := range update.NewDefaults {
			if err = insertDefault(ctx, tx, d); err != nil {
				return nil, nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit loan update: %w", err)
	}

	return client, loan, nil
}

func (r *ClientRepo) queryClients(ctx context.Context, query string, args ...interface{}) ([]*models.Client, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get clients: %w", err)
	}
	defer rows.Close()

	clients := []*models.Client{}
	byID := map[string]*models.Client{}
	ids := []string{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
		byID[client.ID] = client
		ids = append(ids, client.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(ids) == 0 {
		return clients, nil
	}

	loans, err := queryLoans(ctx, r.db, `WHERE client_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		if client, ok := byID[loan.ClientID]; ok {
			client.Loans = append(client.Loans, loan)
		}
	}

	return clients, nil
}

func getClient(ctx context.Context, q querier, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	client, err := scanClient(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("client %s not found", id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	client.Loans, err = queryLoans(ctx, q, `WHERE client_id = $1`, id)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func scanClient(s scanner) (*models.Client, error) {
	client := &models.Client{}
	var (
		phones, documents pq.StringArray
		lat, lng          sql.NullFloat64
		address           sql.NullString
	)

	err := s.Scan(
		&client.ID,
		&client.ClientName,
		&phones,
		&client.Email,
		&client.TemporaryAddress,
		&client.PermanentAddress,
		&client.ShopAddress,
		&client.HouseAddress,
		&client.ClientPhoto,
		&client.ShopPhoto,
		&client.HousePhoto,
		&documents,
		&client.ReferralName,
		&client.ReferralNumber,
		&client.GoogleMapsLink,
		&lat,
		&lng,
		&address,
		&client.CreatedBy,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	client.ClientPhoneNumbers = phones
	client.Documents = documents
	client.Loans = []*models.Loan{}
	if lat.Valid && lng.Valid {
		client.Location = &models.Location{Lat: lat.Float64, Lng: lng.Float64, Address: address.String}
	}

	return client, nil
}

func queryLoans(ctx context.Context, q querier, where string, args ...interface{}) ([]*models.Loan, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans `+where+` ORDER BY position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	loans := []*models.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return loans, nil
}

func scanLoan(s scanner) (*models.Loan, error) {
	loan := &models.Loan{}
	var (
		next    sql.NullTime
		records []byte
	)

	err := s.Scan(
		&loan.ID,
		&loan.ClientID,
		&loan.LoanNumber,
		&loan.LoanAmount,
		&loan.DisbursedAmount,
		&loan.Interest,
		&loan.InterestRate,
		&loan.InterestPolicy,
		&loan.TenureDays,
		&loan.TenureMonths,
		&loan.EmiType,
		&loan.EmiAmount,
		&loan.InstallmentCount,
		&loan.TotalPayable,
		&loan.TotalCollected,
		&loan.TotalAmountLeft,
		&loan.PaidEmis,
		&loan.OpenDefaults,
		&loan.StartDate,
		&loan.DueDate,
		&next,
		&loan.Status,
		&records,
		&loan.CreatedBy,
		&loan.Version,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if next.Valid {
		loan.NextEmiDate = &next.Time
	}

	loan.EmiRecords = []models.EmiRecord{}
	if len(records) > 0 {
		if err := json.Unmarshal(records, &loan.EmiRecords); err != nil {
			return nil, fmt.Errorf("failed to decode emi records: %w", err)
		}
	}

	return loan, nil
}

func insertLoan(ctx context.Context, q querier, loan *models.Loan) error {
	records, err := json.Marshal(nonNilRecords(loan.EmiRecords))
	if err != nil {
		return fmt.Errorf("failed to encode emi records: %w", err)
	}

	query := `INSERT INTO loans (id, client_id, loan_number, loan_amount, disbursed_amount, interest,
			  interest_rate, interest_policy, tenure_days, tenure_months, emi_type, emi_amount, installment_count,
			  total_payable, total_collected, total_amount_left, paid_emis, open_defaults, start_date, due_date,
			  next_emi_date, status, emi_records, created_by, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			  $21, $22, $23, $24, $25, $26, $27)`

	_, err = q.ExecContext(
		ctx,
		query,
		loan.ID,
		loan.ClientID,
		loan.LoanNumber,
		loan.LoanAmount,
		loan.DisbursedAmount,
		loan.Interest,
		loan.InterestRate,
		loan.InterestPolicy,
		loan.TenureDays,
		loan.TenureMonths,
		loan.EmiType,
		loan.EmiAmount,
		loan.InstallmentCount,
		loan.TotalPayable,
		loan.TotalCollected,
		loan.TotalAmountLeft,
		loan.PaidEmis,
		loan.OpenDefaults,
		loan.StartDate,
		loan.DueDate,
		loan.NextEmiDate,
		loan.Status,
		records,
		loan.CreatedBy,
		loan.Version,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

func updateLoanRow(ctx context.Context, q querier, loan *models.Loan) error {
	records, err := json.Marshal(nonNilRecords(loan.EmiRecords))
	if err != nil {
		return fmt.Errorf("failed to encode emi records: %w", err)
	}

	query := `UPDATE loans
			  SET total_collected = $1, total_amount_left = $2, paid_emis = $3, open_defaults = $4,
			  next_emi_date = $5, status = $6, emi_records = $7, version = $8, updated_at = $9
			  WHERE id = $10`

	result, err := q.ExecContext(
		ctx,
		query,
		loan.TotalCollected,
		loan.TotalAmountLeft,
		loan.PaidEmis,
		loan.OpenDefaults,
		loan.NextEmiDate,
		loan.Status,
		records,
		loan.Version,
		loan.UpdatedAt,
		loan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	return expectOne(result, apperrors.NotFound("loan %s not found", loan.ID))
}

func expectOne(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return notFound
	}

	return nil
}

func nullLocation(loc *models.Location) (sql.NullFloat64, sql.NullFloat64, sql.NullString) {
	if loc == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}, sql.NullString{}
	}
	return sql.NullFloat64{Float64: loc.Lat, Valid: true},
		sql.NullFloat64{Float64: loc.Lng, Valid: true},
		sql.NullString{String: loc.Address, Valid: true}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilRecords(records []models.EmiRecord) []models.EmiRecord {
	if records == nil {
		return []models.EmiRecord{}
	}
	return records
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
