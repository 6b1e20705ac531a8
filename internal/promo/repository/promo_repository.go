package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aquamart/internal/domain"
	"aquamart/internal/errors"
)

type MySQLPromoRepository struct {
	db *sql.DB
}

func NewMySQLPromoRepository(db *sql.DB) *MySQLPromoRepository {
	return &MySQLPromoRepository{db: db}
}

func (r *MySQLPromoRepository) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `
		SELECT id, code, discountType, value, maxDiscount, minOrder,
		       usageLimit, usageCount, isActive, expiresAt, createdAt
		FROM PromoCodes
		WHERE code = ?
	`

	var promo domain.PromoCode
	var discountType string
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&promo.ID, &promo.Code, &discountType, &promo.Value,
		&promo.MaxDiscount, &promo.MinOrder,
		&promo.UsageLimit, &promo.UsageCount, &promo.IsActive,
		&promo.ExpiresAt, &promo.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("promo code %s not found", code))
	}
	if err != nil {
		return nil, fmt.Errorf("querying promo code: %w", err)
	}

	promo.DiscountType = domain.DiscountType(discountType)
	return &promo, nil
}

// IncrementUsage bumps the counter with the limit enforced in SQL, so
// two orders racing on the last use cannot both claim it. Returns false
// when the limit was already reached.
func (r *MySQLPromoRepository) IncrementUsage(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	query := `
		UPDATE PromoCodes SET usageCount = usageCount + 1
		WHERE id = ? AND (usageLimit IS NULL OR usageCount < usageLimit)
	`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("incrementing promo usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
