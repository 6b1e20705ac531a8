package repository

import (
	"context"
	"database/sql"
	"testing"

	"aquamart/internal/domain"
	apperrors "aquamart/internal/errors"
	"aquamart/internal/testutil"
)

func setupOrderRepo(t *testing.T) (*MySQLOrderRepository, *sql.DB) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return NewMySQLOrderRepository(db), db
}

func insertPendingOrder(t *testing.T, db *sql.DB) uint {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO Orders (userId, orderNo, status, shipName, shipPhone, shipAddress, shipCity,
			subtotal, shipping, vat, discount, total, commission)
		 VALUES (7, 'AQ-000001', 'PENDING', 'Rahim Uddin', '01711000000', 'House 12', 'Dhaka',
			'100.00', '0.00', '15.00', '0.00', '115.00', '12.00')`)
	if err != nil {
		t.Fatalf("failed to insert order: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint(id)
}

func TestMarkPaymentInitiated_CASOnPending(t *testing.T) {
	repo, db := setupOrderRepo(t)
	id := insertPendingOrder(t, db)

	ok, err := repo.MarkPaymentInitiated(context.Background(), id, "AQ1-100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the PENDING order to transition")
	}

	order, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if order.Status != domain.OrderStatusPaymentInitiated {
		t.Errorf("expected PAYMENT_INITIATED, got %s", order.Status)
	}
	if order.TranID == nil || *order.TranID != "AQ1-100" {
		t.Errorf("expected tranId recorded, got %v", order.TranID)
	}

	// Second attempt: no longer PENDING, the swap must refuse.
	ok, err = repo.MarkPaymentInitiated(context.Background(), id, "AQ1-200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected the swap to refuse a non-PENDING order")
	}
	order, _ = repo.FindByID(context.Background(), id)
	if order.TranID == nil || *order.TranID != "AQ1-100" {
		t.Errorf("refused swap must not overwrite tranId, got %v", order.TranID)
	}
}

func TestRevertToPending(t *testing.T) {
	repo, db := setupOrderRepo(t)
	id := insertPendingOrder(t, db)

	// Not in PAYMENT_INITIATED yet; nothing to revert.
	ok, err := repo.RevertToPending(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected no revert for a PENDING order")
	}

	if _, err := repo.MarkPaymentInitiated(context.Background(), id, "AQ1-100"); err != nil {
		t.Fatalf("failed to initiate: %v", err)
	}

	ok, err = repo.RevertToPending(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected revert to succeed")
	}

	order, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
}

func TestFindByTranID(t *testing.T) {
	repo, db := setupOrderRepo(t)
	id := insertPendingOrder(t, db)

	if _, err := repo.MarkPaymentInitiated(context.Background(), id, "AQ1-100"); err != nil {
		t.Fatalf("failed to initiate: %v", err)
	}

	order, err := repo.FindByTranID(context.Background(), "AQ1-100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != id {
		t.Errorf("expected order %d, got %d", id, order.ID)
	}

	_, err = repo.FindByTranID(context.Background(), "AQ999-1")
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
