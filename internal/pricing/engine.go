package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aquamart/internal/domain"
	apperrors "aquamart/internal/errors"
)

// CartLine is a cart item resolved against the live product record.
type CartLine struct {
	ProductID    int64
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int
	FreeShipping bool
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is the itemized pricing snapshot an order is created from.
// Invariant: Total = Subtotal - Discount + VAT + Shipping, every
// component non-negative.
type Quote struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal
	Commission decimal.Decimal
	ZoneName   string
	Promo      *domain.PromoCode
}

// Engine computes order totals. It is pure: no I/O, the promo record is
// resolved by the caller. Rates arrive as parameters, not package
// constants.
type Engine struct {
	vatRate        decimal.Decimal
	commissionRate decimal.Decimal
	zones          []Zone
	now            func() time.Time
}

func NewEngine(vatRate, commissionRate decimal.Decimal) *Engine {
	return &Engine{
		vatRate:        vatRate,
		commissionRate: commissionRate,
		zones:          DefaultZones(),
		now:            time.Now,
	}
}

func (e *Engine) Quote(lines []CartLine, city string, promo *domain.PromoCode) (*Quote, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewRejectionError(apperrors.KindEmptyCart, "cart is empty")
	}

	subtotal := decimal.Zero
	freeShipItem := false
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
		if line.FreeShipping {
			freeShipItem = true
		}
	}

	zone := resolveZone(e.zones, city)
	shipping := zone.Fee
	if freeShipItem || subtotal.GreaterThanOrEqual(zone.FreeThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if promo != nil {
		var err error
		discount, err = e.promoDiscount(subtotal, promo)
		if err != nil {
			return nil, err
		}
	}

	taxable := subtotal.Sub(discount)
	vat := taxable.Mul(e.vatRate).Round(2)
	total := taxable.Add(vat).Add(shipping)
	commission := total.Mul(e.commissionRate).Round(2)

	return &Quote{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Discount:   discount,
		VAT:        vat,
		Total:      total,
		Commission: commission,
		ZoneName:   zone.Name,
		Promo:      promo,
	}, nil
}

func (e *Engine) promoDiscount(subtotal decimal.Decimal, promo *domain.PromoCode) (decimal.Decimal, error) {
	if !promo.IsActive {
		return decimal.Zero, apperrors.NewRejectionError(apperrors.KindPromo,
			fmt.Sprintf("promo code %s is not active", promo.Code))
	}
	if promo.Expired(e.now()) {
		return decimal.Zero, apperrors.NewRejectionError(apperrors.KindPromo,
			fmt.Sprintf("promo code %s has expired", promo.Code))
	}
	if promo.UsageExhausted() {
		return decimal.Zero, apperrors.NewRejectionError(apperrors.KindPromo,
			fmt.Sprintf("promo code %s usage limit reached", promo.Code))
	}
	if promo.MinOrder != nil && subtotal.LessThan(*promo.MinOrder) {
		return decimal.Zero, apperrors.NewRejectionError(apperrors.KindPromo,
			fmt.Sprintf("order subtotal is below the %s minimum for promo code %s",
				promo.MinOrder.StringFixed(2), promo.Code))
	}

	var discount decimal.Decimal
	switch promo.DiscountType {
	case domain.DiscountPercent:
		// Percentages above 100 would make the discount exceed the
		// subtotal; the clamp below covers that too.
		discount = subtotal.Mul(promo.Value).Div(decimal.NewFromInt(100)).Round(2)
	case domain.DiscountFixed:
		discount = promo.Value
	default:
		return decimal.Zero, apperrors.NewRejectionError(apperrors.KindPromo,
			fmt.Sprintf("promo code %s has an unknown discount type", promo.Code))
	}

	if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
		discount = *promo.MaxDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount, nil
}
