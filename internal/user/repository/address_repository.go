package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aquamart/internal/domain"
	"aquamart/internal/errors"
)

type MySQLAddressRepository struct {
	db *sql.DB
}

func NewMySQLAddressRepository(db *sql.DB) *MySQLAddressRepository {
	return &MySQLAddressRepository{db: db}
}

// FindByIDAndUser scopes the lookup to the owner, so one user cannot
// ship against another user's address id.
func (r *MySQLAddressRepository) FindByIDAndUser(ctx context.Context, id, userID int64) (*domain.Address, error) {
	query := `
		SELECT id, userId, name, phone, address, city, createdAt
		FROM Addresses
		WHERE id = ? AND userId = ?
	`

	var addr domain.Address
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&addr.ID, &addr.UserID, &addr.Name, &addr.Phone, &addr.Address, &addr.City, &addr.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("address with id %d not found for user", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying address: %w", err)
	}

	return &addr, nil
}
