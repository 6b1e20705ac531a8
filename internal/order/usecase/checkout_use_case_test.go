package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"aquamart/internal/domain"
	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
	"aquamart/internal/payment/gateway"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Mock implementations

type mockAddressRepository struct {
	FindByIDAndUserFunc func(ctx context.Context, id, userID int64) (*domain.Address, error)
}

func (m *mockAddressRepository) FindByIDAndUser(ctx context.Context, id, userID int64) (*domain.Address, error) {
	return m.FindByIDAndUserFunc(ctx, id, userID)
}

type mockCartStore struct {
	GetFunc func(ctx context.Context, userID int64) ([]domain.CartItem, error)
}

func (m *mockCartStore) Get(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	return m.GetFunc(ctx, userID)
}

type mockPromoRepository struct {
	FindByCodeFunc func(ctx context.Context, code string) (*domain.PromoCode, error)
}

func (m *mockPromoRepository) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return m.FindByCodeFunc(ctx, code)
}

type mockOrderFactory struct {
	attempts       int
	PlaceOrderFunc func(attempt int) (*domain.Order, error)
}

func (m *mockOrderFactory) PlaceOrder(ctx context.Context, userID int64, address *domain.Address, cartItems []domain.CartItem, promo *domain.PromoCode, note string) (*domain.Order, error) {
	m.attempts++
	return m.PlaceOrderFunc(m.attempts)
}

type mockOrderRepository struct {
	markedTranID string
	sessionKey   string
	reverted     bool

	markPaymentInitiatedOK  bool
	markPaymentInitiatedErr error
}

func (m *mockOrderRepository) MarkPaymentInitiated(ctx context.Context, id uint, tranID string) (bool, error) {
	m.markedTranID = tranID
	return m.markPaymentInitiatedOK, m.markPaymentInitiatedErr
}

func (m *mockOrderRepository) SetSessionKey(ctx context.Context, id uint, sessionKey string) error {
	m.sessionKey = sessionKey
	return nil
}

func (m *mockOrderRepository) RevertToPending(ctx context.Context, id uint) (bool, error) {
	m.reverted = true
	return true, nil
}

type mockHistoryRepository struct {
	notes []string
}

func (m *mockHistoryRepository) Append(ctx context.Context, orderID uint, status domain.OrderStatus, note string) error {
	m.notes = append(m.notes, note)
	return nil
}

type mockGatewayClient struct {
	lastRequest       gateway.SessionRequest
	CreateSessionFunc func(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error)
}

func (m *mockGatewayClient) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error) {
	m.lastRequest = req
	return m.CreateSessionFunc(ctx, req)
}

// Test fixtures

func testAddress() *domain.Address {
	return &domain.Address{
		ID:      3,
		UserID:  7,
		Name:    "Rahim Uddin",
		Phone:   "01711000000",
		Address: "House 12, Road 5, Dhanmondi",
		City:    "Dhaka",
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:       42,
		UserID:   7,
		OrderNo:  "AQ-000042",
		Status:   domain.OrderStatusPending,
		Subtotal: dec("1000.00"),
		Shipping: dec("50.00"),
		Discount: dec("100.00"),
		VAT:      dec("142.50"),
		Total:    dec("1092.50"),
	}
}

func happyPathMocks() (*mockAddressRepository, *mockCartStore, *mockPromoRepository, *mockOrderFactory, *mockOrderRepository, *mockHistoryRepository, *mockGatewayClient) {
	addresses := &mockAddressRepository{
		FindByIDAndUserFunc: func(ctx context.Context, id, userID int64) (*domain.Address, error) {
			return testAddress(), nil
		},
	}
	carts := &mockCartStore{
		GetFunc: func(ctx context.Context, userID int64) ([]domain.CartItem, error) {
			return []domain.CartItem{{ProductID: 1, Quantity: 2}}, nil
		},
	}
	promos := &mockPromoRepository{
		FindByCodeFunc: func(ctx context.Context, code string) (*domain.PromoCode, error) {
			return nil, apperrors.NewNotFoundError("promo code not found")
		},
	}
	factory := &mockOrderFactory{
		PlaceOrderFunc: func(attempt int) (*domain.Order, error) {
			return testOrder(), nil
		},
	}
	orders := &mockOrderRepository{markPaymentInitiatedOK: true}
	history := &mockHistoryRepository{}
	gatewayClient := &mockGatewayClient{
		CreateSessionFunc: func(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error) {
			return &gateway.SessionResponse{
				Status:         "SUCCESS",
				SessionKey:     "sess-abc",
				GatewayPageURL: "https://sandbox.gateway.example/pay/sess-abc",
			}, nil
		},
	}
	return addresses, carts, promos, factory, orders, history, gatewayClient
}

func newTestUseCase(
	addresses *mockAddressRepository,
	carts *mockCartStore,
	promos *mockPromoRepository,
	factory *mockOrderFactory,
	orders *mockOrderRepository,
	history *mockHistoryRepository,
	gatewayClient *mockGatewayClient,
) *CheckoutUseCase {
	return NewCheckoutUseCase(addresses, carts, promos, factory, orders, history, gatewayClient, zap.NewNop(), 3)
}

// Tests

func TestCheckout_Success(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	resp, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.OrderID != 42 || resp.OrderNo != "AQ-000042" {
		t.Errorf("unexpected order identity: %+v", resp)
	}
	if resp.GatewayURL != "https://sandbox.gateway.example/pay/sess-abc" {
		t.Errorf("unexpected gateway URL: %s", resp.GatewayURL)
	}
	if !resp.Summary.Total.Equal(dec("1092.50")) {
		t.Errorf("expected total 1092.50, got %s", resp.Summary.Total)
	}
	if !strings.HasPrefix(orders.markedTranID, "AQ42-") {
		t.Errorf("expected tran id prefixed with AQ42-, got %s", orders.markedTranID)
	}
	if orders.sessionKey != "sess-abc" {
		t.Errorf("expected session key stored, got %q", orders.sessionKey)
	}
	if !gatewayClient.lastRequest.Amount.Equal(dec("1092.50")) {
		t.Errorf("expected gateway charged the order total, got %s", gatewayClient.lastRequest.Amount)
	}
	if len(history.notes) != 1 || history.notes[0] != "Payment session created" {
		t.Errorf("unexpected history notes: %v", history.notes)
	}
}

func TestCheckout_AddressNotFound(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	addresses.FindByIDAndUserFunc = func(ctx context.Context, id, userID int64) (*domain.Address, error) {
		return nil, apperrors.NewNotFoundError("address not found")
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 99})

	re, ok := apperrors.IsRejectionError(err)
	if !ok || re.Kind != apperrors.KindAddress {
		t.Fatalf("expected ADDRESS_ERROR rejection, got %v", err)
	}
	if factory.attempts != 0 {
		t.Errorf("order must not be created without a valid address")
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	carts.GetFunc = func(ctx context.Context, userID int64) ([]domain.CartItem, error) {
		return nil, nil
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})

	re, ok := apperrors.IsRejectionError(err)
	if !ok || re.Kind != apperrors.KindEmptyCart {
		t.Fatalf("expected EMPTY_CART rejection, got %v", err)
	}
	if factory.attempts != 0 {
		t.Errorf("order must not be created from an empty cart")
	}
}

func TestCheckout_UnknownPromoCode(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3, PromoCode: "NOPE"})

	re, ok := apperrors.IsRejectionError(err)
	if !ok || re.Kind != apperrors.KindPromo {
		t.Fatalf("expected PROMO_ERROR rejection, got %v", err)
	}
	if !strings.Contains(re.Message, "NOPE") {
		t.Errorf("expected the message to name the code, got %q", re.Message)
	}
}

func TestCheckout_GatewayFailureRevertsOrder(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	gatewayClient.CreateSessionFunc = func(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error) {
		return nil, apperrors.NewGatewayError("session request failed", nil)
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})

	re, ok := apperrors.IsRejectionError(err)
	if !ok || re.Kind != apperrors.KindPayment {
		t.Fatalf("expected PAYMENT_ERROR rejection, got %v", err)
	}
	if !orders.reverted {
		t.Errorf("expected order reverted to PENDING after gateway failure")
	}
	if len(history.notes) != 1 || !strings.Contains(history.notes[0], "Gateway session init failed") {
		t.Errorf("expected a failure note, got %v", history.notes)
	}
}

func TestCheckout_DeadlockRetriesThenSucceeds(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	factory.PlaceOrderFunc = func(attempt int) (*domain.Order, error) {
		if attempt < 3 {
			return nil, &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
		}
		return testOrder(), nil
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	resp, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", factory.attempts)
	}
	if resp.OrderID != 42 {
		t.Errorf("expected the retried checkout to succeed")
	}
}

func TestCheckout_DeadlockRetriesExhausted(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	factory.PlaceOrderFunc = func(attempt int) (*domain.Order, error) {
		return nil, &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})

	if _, ok := apperrors.IsDeadlockError(err); !ok {
		t.Fatalf("expected DeadlockError after exhausted retries, got %v", err)
	}
	if factory.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", factory.attempts)
	}
}

func TestCheckout_FactoryRejectionIsNotRetried(t *testing.T) {
	addresses, carts, promos, factory, orders, history, gatewayClient := happyPathMocks()
	factory.PlaceOrderFunc = func(attempt int) (*domain.Order, error) {
		return nil, apperrors.NewRejectionError(apperrors.KindStock, "insufficient stock for product Mum Water 500ml")
	}
	uc := newTestUseCase(addresses, carts, promos, factory, orders, history, gatewayClient)

	_, err := uc.Checkout(context.Background(), 7, dto.CheckoutRequest{AddressID: 3})

	re, ok := apperrors.IsRejectionError(err)
	if !ok || re.Kind != apperrors.KindStock {
		t.Fatalf("expected STOCK_ERROR rejection, got %v", err)
	}
	if factory.attempts != 1 {
		t.Errorf("business rejections must not be retried, got %d attempts", factory.attempts)
	}
}
