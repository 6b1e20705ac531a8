package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aquamart/internal/domain"
)

// MySQLStatusHistoryRepository appends to the order audit log. Rows are
// never updated or deleted.
type MySQLStatusHistoryRepository struct {
	db *sql.DB
}

func NewMySQLStatusHistoryRepository(db *sql.DB) *MySQLStatusHistoryRepository {
	return &MySQLStatusHistoryRepository{db: db}
}

func (r *MySQLStatusHistoryRepository) Insert(ctx context.Context, tx *sql.Tx, orderID uint, status domain.OrderStatus, note string) error {
	query := `INSERT INTO OrderStatusHistory (orderId, status, note, createdAt) VALUES (?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query, orderID, string(status), note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting status history: %w", err)
	}

	return nil
}

// Append records a transition outside any caller transaction, for paths
// that only touch the audit log (gateway init failures and the like).
func (r *MySQLStatusHistoryRepository) Append(ctx context.Context, orderID uint, status domain.OrderStatus, note string) error {
	query := `INSERT INTO OrderStatusHistory (orderId, status, note, createdAt) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, orderID, string(status), note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting status history: %w", err)
	}

	return nil
}

func (r *MySQLStatusHistoryRepository) ListByOrderID(ctx context.Context, orderID uint) ([]domain.OrderStatusHistory, error) {
	query := `
		SELECT id, orderId, status, note, createdAt
		FROM OrderStatusHistory
		WHERE orderId = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	var entries []domain.OrderStatusHistory
	for rows.Next() {
		var entry domain.OrderStatusHistory
		var status string
		if err := rows.Scan(&entry.ID, &entry.OrderID, &status, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning status history: %w", err)
		}
		entry.Status = domain.OrderStatus(status)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}

	return entries, nil
}
