package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aquamart/internal/domain"
	"aquamart/internal/errors"
)

type MySQLProductRepository struct {
	db *sql.DB
}

func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

func (r *MySQLProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, vendorId, name, image, price, stock, freeShipping, isActive, createdAt, updatedAt
		FROM Products
		WHERE id = ?
	`

	return r.scanProduct(r.db.QueryRowContext(ctx, query, id), id)
}

// FindByIDForUpdate locks the product row for the remainder of the
// caller's transaction. Callers must lock in ascending productId order
// to avoid deadlocks between concurrent checkouts.
func (r *MySQLProductRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error) {
	query := `
		SELECT id, vendorId, name, image, price, stock, freeShipping, isActive, createdAt, updatedAt
		FROM Products
		WHERE id = ?
		FOR UPDATE
	`

	return r.scanProduct(tx.QueryRowContext(ctx, query, id), id)
}

func (r *MySQLProductRepository) scanProduct(row *sql.Row, id int64) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.VendorID, &p.Name, &p.Image, &p.Price,
		&p.Stock, &p.FreeShipping, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}

	return &p, nil
}

// DecrementStock applies the settlement-time inventory decrement. There
// is deliberately no floor check here: orders were stock-checked at
// creation, and oversell between unpaid orders is an accepted risk.
func (r *MySQLProductRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	query := `UPDATE Products SET stock = stock - ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}

	return nil
}
