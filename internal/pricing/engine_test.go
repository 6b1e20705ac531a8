package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aquamart/internal/domain"
	apperrors "aquamart/internal/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func newTestEngine() *Engine {
	return NewEngine(dec("0.15"), dec("0.12"))
}

func assertMoneyEqual(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: expected %s, got %s", field, want.StringFixed(2), got.StringFixed(2))
	}
}

func TestQuote_DhakaWithPercentPromoAndCap(t *testing.T) {
	engine := newTestEngine()

	lines := []CartLine{
		{ProductID: 1, Name: "Mineral Water 5L", UnitPrice: dec("250"), Quantity: 4},
	}
	promo := &domain.PromoCode{
		ID:           7,
		Code:         "SAVE10",
		DiscountType: domain.DiscountPercent,
		Value:        dec("10"),
		MaxDiscount:  decPtr("50"),
		IsActive:     true,
	}

	quote, err := engine.Quote(lines, "Dhaka", promo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertMoneyEqual(t, "subtotal", quote.Subtotal, dec("1000"))
	assertMoneyEqual(t, "discount", quote.Discount, dec("50"))
	assertMoneyEqual(t, "shipping", quote.Shipping, dec("0"))
	assertMoneyEqual(t, "vat", quote.VAT, dec("142.5"))
	assertMoneyEqual(t, "total", quote.Total, dec("1092.5"))
	assertMoneyEqual(t, "commission", quote.Commission, dec("131.10"))
}

func TestQuote_TotalInvariant(t *testing.T) {
	engine := newTestEngine()

	lines := []CartLine{
		{ProductID: 1, UnitPrice: dec("333.33"), Quantity: 3},
		{ProductID: 2, UnitPrice: dec("49.99"), Quantity: 1},
	}

	quote, err := engine.Quote(lines, "Sylhet", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recomposed := quote.Subtotal.Sub(quote.Discount).Add(quote.VAT).Add(quote.Shipping)
	assertMoneyEqual(t, "total invariant", quote.Total, recomposed)

	for field, v := range map[string]decimal.Decimal{
		"subtotal": quote.Subtotal,
		"shipping": quote.Shipping,
		"discount": quote.Discount,
		"vat":      quote.VAT,
		"total":    quote.Total,
	} {
		if v.IsNegative() {
			t.Errorf("%s is negative: %s", field, v.String())
		}
	}
}

func TestQuote_EmptyCartRejected(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Quote(nil, "Dhaka", nil)
	re, ok := apperrors.IsRejectionError(err)
	if !ok {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if re.Kind != apperrors.KindEmptyCart {
		t.Errorf("expected kind EMPTY_CART, got %s", re.Kind)
	}
}

func TestQuote_ZoneFeeAndFreeThreshold(t *testing.T) {
	engine := newTestEngine()

	// Below the Chattogram free threshold: flat fee applies.
	quote, err := engine.Quote([]CartLine{{UnitPrice: dec("500"), Quantity: 1}}, "chattogram", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoneyEqual(t, "shipping below threshold", quote.Shipping, dec("100"))

	// At the threshold shipping zeroes out.
	quote, err = engine.Quote([]CartLine{{UnitPrice: dec("3000"), Quantity: 1}}, "Chattogram City", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoneyEqual(t, "shipping at threshold", quote.Shipping, dec("0"))
}

func TestQuote_FreeShippingFlagZeroesFee(t *testing.T) {
	engine := newTestEngine()

	lines := []CartLine{
		{ProductID: 1, UnitPrice: dec("200"), Quantity: 1, FreeShipping: true},
		{ProductID: 2, UnitPrice: dec("100"), Quantity: 1},
	}

	quote, err := engine.Quote(lines, "Khulna", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoneyEqual(t, "shipping", quote.Shipping, dec("0"))
}

func TestQuote_UnknownCityFallsBackToNationwide(t *testing.T) {
	engine := newTestEngine()

	quote, err := engine.Quote([]CartLine{{UnitPrice: dec("400"), Quantity: 1}}, "Barguna Sadar", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.ZoneName != "Nationwide" {
		t.Errorf("expected Nationwide zone, got %s", quote.ZoneName)
	}
	assertMoneyEqual(t, "shipping", quote.Shipping, dec("130"))
}

func TestQuote_FixedDiscountClampedToSubtotal(t *testing.T) {
	engine := newTestEngine()

	promo := &domain.PromoCode{
		Code:         "FLAT500",
		DiscountType: domain.DiscountFixed,
		Value:        dec("500"),
		IsActive:     true,
	}

	quote, err := engine.Quote([]CartLine{{UnitPrice: dec("300"), Quantity: 1}}, "Dhaka", promo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Discount must clamp to the subtotal, never drive it negative.
	assertMoneyEqual(t, "discount", quote.Discount, dec("300"))
	assertMoneyEqual(t, "vat", quote.VAT, dec("0"))
	assertMoneyEqual(t, "total", quote.Total, dec("0"))
}

func TestQuote_PromoRejections(t *testing.T) {
	engine := newTestEngine()
	engine.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		promo   *domain.PromoCode
		wantMsg string
	}{
		{
			name:    "inactive",
			promo:   &domain.PromoCode{Code: "OLD", DiscountType: domain.DiscountFixed, Value: dec("10"), IsActive: false},
			wantMsg: "promo code OLD is not active",
		},
		{
			name:    "expired",
			promo:   &domain.PromoCode{Code: "GONE", DiscountType: domain.DiscountFixed, Value: dec("10"), IsActive: true, ExpiresAt: &past},
			wantMsg: "promo code GONE has expired",
		},
		{
			name:    "usage limit reached",
			promo:   &domain.PromoCode{Code: "ONCE", DiscountType: domain.DiscountFixed, Value: dec("10"), IsActive: true, UsageLimit: intPtr(1), UsageCount: 1},
			wantMsg: "promo code ONCE usage limit reached",
		},
		{
			name:    "below minimum order",
			promo:   &domain.PromoCode{Code: "BIG", DiscountType: domain.DiscountFixed, Value: dec("10"), IsActive: true, MinOrder: decPtr("5000")},
			wantMsg: "order subtotal is below the 5000.00 minimum for promo code BIG",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Quote([]CartLine{{UnitPrice: dec("100"), Quantity: 1}}, "Dhaka", tc.promo)

			re, ok := apperrors.IsRejectionError(err)
			if !ok {
				t.Fatalf("expected RejectionError, got %v", err)
			}
			if re.Kind != apperrors.KindPromo {
				t.Errorf("expected kind PROMO_ERROR, got %s", re.Kind)
			}
			if re.Message != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, re.Message)
			}
		})
	}
}

func TestQuote_PercentDiscountNeverExceedsCap(t *testing.T) {
	engine := newTestEngine()

	promo := &domain.PromoCode{
		Code:         "SAVE20",
		DiscountType: domain.DiscountPercent,
		Value:        dec("20"),
		MaxDiscount:  decPtr("150"),
		IsActive:     true,
	}

	quote, err := engine.Quote([]CartLine{{UnitPrice: dec("10000"), Quantity: 1}}, "Dhaka", promo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoneyEqual(t, "discount", quote.Discount, dec("150"))
}
