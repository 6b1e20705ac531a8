package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	AddressID int64  `json:"addressId"`
	PromoCode string `json:"promoCode,omitempty"`
	Note      string `json:"note,omitempty"`
}

type OrderSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
}

type CheckoutResponse struct {
	TraceID    string       `json:"traceId"`
	OrderID    uint         `json:"orderId"`
	OrderNo    string       `json:"orderNo"`
	GatewayURL string       `json:"gatewayUrl"`
	Summary    OrderSummary `json:"summary"`
	Timestamp  time.Time    `json:"timestamp"`
}

type RefundResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   uint      `json:"orderId"`
	OrderNo   string    `json:"orderNo"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
