//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"lending-service/internal/ledger"
	"lending-service/internal/models"
)

// Run with: LENDING_TEST_POSTGRES_DSN=... go test -tags integration ./internal/repository/postgres
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("LENDING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LENDING_TEST_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpdateLoanSerializesSameLoan(t *testing.T) {
	db := openTestDB(t)
	repo := NewClientRepository(db)
	defaults := NewDefaultRepository(db)
	ctx := context.Background()
	at := time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC)

	req := &models.ClientCreate{
		ClientName:         "Integration " + uuid.NewString(),
		ClientPhoneNumbers: []string{uuid.NewString()},
		Loans: []models.LoanRequest{
			{LoanAmount: 10000, InterestRate: 10, TenureDays: 100, EmiType: models.EmiTypeDaily, StartDate: &at},
		},
	}
	client, err := req.ToClient(models.InterestPolicyTenure, "agent-1", at)
	if err != nil {
		t.Fatalf("ToClient: %v", err)
	}
	if err := repo.Create(ctx, client); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { repo.Delete(context.Background(), client.ID) })
	loan := client.Loans[0]

	collect := func(status models.EmiStatus) models.LoanMutation {
		return func(c *models.Client, l *models.Loan) (*models.LoanUpdate, error) {
			out, err := ledger.ApplyCollection(c, l, &models.Collection{
				AmountCollected: l.EmiAmount,
				Status:          status,
				Location:        &models.Location{Lat: 25.3, Lng: 82.9},
				CollectedBy:     "agent-1",
				At:              at,
			})
			if err != nil {
				return nil, err
			}
			return out.Update(), nil
		}
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.UpdateLoan(ctx, client.ID, loan.ID, collect(models.EmiStatusPaid))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpdateLoan: %v", err)
		}
	}

	if _, _, err := repo.UpdateLoan(ctx, client.ID, loan.ID, collect(models.EmiStatusDefaulted)); err != nil {
		t.Fatalf("default: %v", err)
	}

	stored, err := repo.GetByID(ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	got := stored.FindLoan(loan.ID)
	if want := loan.EmiAmount * workers; got.TotalCollected != want || got.PaidEmis != workers {
		t.Errorf("total_collected = %v paid_emis = %d, want %v and %d", got.TotalCollected, got.PaidEmis, want, workers)
	}
	if got.OpenDefaults != 1 || got.Status != models.LoanStatusDefaulted {
		t.Errorf("open_defaults = %d status = %s", got.OpenDefaults, got.Status)
	}

	open, err := defaults.ListByClient(ctx, client.ID)
	if err != nil || len(open) != 1 {
		t.Errorf("defaults = %v, %v", open, err)
	}
}
