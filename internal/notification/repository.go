package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aquamart/internal/domain"
)

// MySQLRepository writes user-facing notification rows. This subsystem
// only ever inserts; reading them back belongs to the UI layer.
type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) Insert(ctx context.Context, tx *sql.Tx, n domain.Notification) error {
	query := `INSERT INTO Notifications (userId, title, body, createdAt) VALUES (?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query, n.UserID, n.Title, n.Body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	return nil
}
