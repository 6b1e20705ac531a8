package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aquamart/internal/domain"
	"aquamart/internal/errors"
)

const orderColumns = `id, userId, orderNo, status, shipName, shipPhone, shipAddress, shipCity, note,
	       subtotal, shipping, vat, discount, total, commission,
	       promoId, promoCode, tranId, sessionKey, valId, cardType,
	       createdAt, paidAt, deliveredAt`

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (uint, error) {
	query := `
		INSERT INTO Orders (userId, orderNo, status, shipName, shipPhone, shipAddress, shipCity, note,
		                    subtotal, shipping, vat, discount, total, commission, promoId, promoCode, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		order.UserID, order.OrderNo, string(order.Status),
		order.ShipName, order.ShipPhone, order.ShipAddress, order.ShipCity, order.Note,
		order.Subtotal, order.Shipping, order.VAT, order.Discount, order.Total, order.Commission,
		order.PromoID, order.PromoCode, order.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderRepository) SetOrderNo(ctx context.Context, tx *sql.Tx, id uint, orderNo string) error {
	result, err := tx.ExecContext(ctx, `UPDATE Orders SET orderNo = ? WHERE id = ?`, orderNo, id)
	if err != nil {
		return fmt.Errorf("setting order number: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM Orders WHERE id = ?`, orderColumns)
	return r.scanOrder(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("order with id %d not found", id))
}

func (r *MySQLOrderRepository) FindByTranID(ctx context.Context, tranID string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM Orders WHERE tranId = ?`, orderColumns)
	return r.scanOrder(r.db.QueryRowContext(ctx, query, tranID), fmt.Sprintf("order with transaction id %s not found", tranID))
}

func (r *MySQLOrderRepository) scanOrder(row *sql.Row, notFoundMsg string) (*domain.Order, error) {
	var order domain.Order
	var status string
	err := row.Scan(
		&order.ID, &order.UserID, &order.OrderNo, &status,
		&order.ShipName, &order.ShipPhone, &order.ShipAddress, &order.ShipCity, &order.Note,
		&order.Subtotal, &order.Shipping, &order.VAT, &order.Discount, &order.Total, &order.Commission,
		&order.PromoID, &order.PromoCode, &order.TranID, &order.SessionKey, &order.ValID, &order.CardType,
		&order.CreatedAt, &order.PaidAt, &order.DeliveredAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	return &order, nil
}

// MarkPaymentInitiated is a compare-and-swap on the PENDING status. It
// returns false when the order was not in PENDING, without touching it.
func (r *MySQLOrderRepository) MarkPaymentInitiated(ctx context.Context, id uint, tranID string) (bool, error) {
	query := `UPDATE Orders SET status = ?, tranId = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.OrderStatusPaymentInitiated), tranID, id, string(domain.OrderStatusPending))
	if err != nil {
		return false, fmt.Errorf("marking payment initiated: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *MySQLOrderRepository) SetSessionKey(ctx context.Context, id uint, sessionKey string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE Orders SET sessionKey = ? WHERE id = ?`, sessionKey, id)
	if err != nil {
		return fmt.Errorf("setting session key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

// RevertToPending rolls an order out of PAYMENT_INITIATED so the user
// can retry. The abandoned tranId stays on the row until the next
// initiation overwrites it; it is never reissued.
func (r *MySQLOrderRepository) RevertToPending(ctx context.Context, id uint) (bool, error) {
	query := `UPDATE Orders SET status = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.OrderStatusPending), id, string(domain.OrderStatusPaymentInitiated))
	if err != nil {
		return false, fmt.Errorf("reverting order to pending: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkPaid performs the settlement compare-and-swap inside the caller's
// transaction: only the first delivery to find the order in
// PAYMENT_INITIATED wins and gets to apply side effects.
func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id uint, valID, cardType string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE Orders SET status = ?, valId = ?, cardType = ?, paidAt = ?
		WHERE id = ? AND status = ?
	`

	result, err := tx.ExecContext(ctx, query,
		string(domain.OrderStatusPaid), valID, cardType, paidAt,
		id, string(domain.OrderStatusPaymentInitiated))
	if err != nil {
		return false, fmt.Errorf("marking order paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// StatusForUpdate re-reads the order status inside the transaction,
// locking the row. Used by losers of the MarkPaid race to distinguish a
// duplicate delivery from an illegal transition.
func (r *MySQLOrderRepository) StatusForUpdate(ctx context.Context, tx *sql.Tx, id uint) (domain.OrderStatus, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM Orders WHERE id = ? FOR UPDATE`, id).Scan(&status)

	if err == sql.ErrNoRows {
		return "", errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return "", fmt.Errorf("querying order status: %w", err)
	}

	return domain.OrderStatus(status), nil
}

func (r *MySQLOrderRepository) MarkRefunded(ctx context.Context, tx *sql.Tx, id uint) (bool, error) {
	query := `UPDATE Orders SET status = ? WHERE id = ? AND status = ?`

	result, err := tx.ExecContext(ctx, query,
		string(domain.OrderStatusRefunded), id, string(domain.OrderStatusPaid))
	if err != nil {
		return false, fmt.Errorf("marking order refunded: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
