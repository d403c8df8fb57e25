//go:build integration

package mongo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lending-service/internal/ledger"
	"lending-service/internal/models"
	"lending-service/pkg/apperrors"
)

// Run with: LENDING_TEST_MONGODB_URI=... go test -tags integration ./internal/repository/mongo
// The server must be a replica set member.
func TestUpdateLoanRetriesStaleVersion(t *testing.T) {
	uri := os.Getenv("LENDING_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("LENDING_TEST_MONGODB_URI not set")
	}

	ctx := context.Background()
	mc, err := Connect(ctx, uri, 10*time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { mc.Disconnect(context.Background()) })

	db := mc.Database("lending_test_" + uuid.NewString()[:8])
	t.Cleanup(func() { db.Drop(context.Background()) })
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	repo := NewClientRepository(mc, db)
	at := time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC)

	req := &models.ClientCreate{
		ClientName:         "Sunita Devi",
		ClientPhoneNumbers: []string{"9000000001"},
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
	loan := client.Loans[0]

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.UpdateLoan(ctx, client.ID, loan.ID, func(c *models.Client, l *models.Loan) (*models.LoanUpdate, error) {
				out, err := ledger.ApplyCollection(c, l, &models.Collection{
					AmountCollected: l.EmiAmount,
					Status:          models.EmiStatusPaid,
					Location:        &models.Location{Lat: 25.3, Lng: 82.9},
					CollectedBy:     "agent-1",
					At:              at,
				})
				if err != nil {
					return nil, err
				}
				return out.Update(), nil
			})

			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case apperrors.Is(err, apperrors.KindConflict):
				// retries exhausted, nothing was written
			default:
				t.Errorf("UpdateLoan: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	got := stored.FindLoan(loan.ID)
	if accepted == 0 {
		t.Fatal("no update was accepted")
	}
	if want := loan.EmiAmount * float64(accepted); got.TotalCollected != want || got.PaidEmis != accepted {
		t.Errorf("total_collected = %v paid_emis = %d, want %v and %d", got.TotalCollected, got.PaidEmis, want, accepted)
	}
	if got.Version != accepted {
		t.Errorf("version = %d, want %d", got.Version, accepted)
	}
}
