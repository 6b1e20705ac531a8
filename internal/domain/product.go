package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           int64
	VendorID     int64
	Name         string
	Image        string
	Price        decimal.Decimal
	Stock        int
	FreeShipping bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Product) HasStockFor(quantity int) bool {
	return p.Stock >= quantity
}
