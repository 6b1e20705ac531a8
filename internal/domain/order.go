package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusPaymentInitiated OrderStatus = "PAYMENT_INITIATED"
	OrderStatusPaid             OrderStatus = "PAID"
	OrderStatusProcessing       OrderStatus = "PROCESSING"
	OrderStatusShipped          OrderStatus = "SHIPPED"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusRefunded         OrderStatus = "REFUNDED"
)

// transitions is the closed set of legal status moves. Anything not
// listed here is rejected, there is no fall-through on unknown statuses.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusPaymentInitiated, OrderStatusCancelled},
	OrderStatusPaymentInitiated: {OrderStatusPaid, OrderStatusPending, OrderStatusCancelled},
	OrderStatusPaid:             {OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusProcessing:       {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:          {OrderStatusDelivered},
	OrderStatusDelivered:        {},
	OrderStatusCancelled:        {},
	OrderStatusRefunded:         {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether a successful payment has been recorded for
// the order at some point of its life.
func (s OrderStatus) IsSettled() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Order is the aggregate root of the settlement pipeline. Monetary
// fields are a snapshot taken at creation time and never recomputed;
// the shipping fields are copied from the address so later edits to it
// cannot change a placed order.
type Order struct {
	ID          uint
	UserID      int64
	OrderNo     string
	Status      OrderStatus
	ShipName    string
	ShipPhone   string
	ShipAddress string
	ShipCity    string
	Note        string
	Subtotal    decimal.Decimal
	Shipping    decimal.Decimal
	VAT         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	Commission  decimal.Decimal
	PromoID     *int64
	PromoCode   string
	TranID      *string
	SessionKey  string
	ValID       string
	CardType    string
	CreatedAt   time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
}

// OrderItem is an immutable snapshot of a product at order-creation
// time; changing the live product never alters a placed order.
type OrderItem struct {
	ID        uint
	OrderID   uint
	ProductID int64
	VendorID  int64
	Name      string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// OrderStatusHistory rows are append-only; they are never updated or
// deleted.
type OrderStatusHistory struct {
	ID        uint
	OrderID   uint
	Status    OrderStatus
	Note      string
	CreatedAt time.Time
}
