package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// PromoCode is a shared, long-lived entity. Only its usage counter
// mutates; the counter is incremented at most once per order that
// applies the code.
type PromoCode struct {
	ID           int64
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MaxDiscount  *decimal.Decimal
	MinOrder     *decimal.Decimal
	UsageLimit   *int
	UsageCount   int
	IsActive     bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

func (p PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

func (p PromoCode) UsageExhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}
