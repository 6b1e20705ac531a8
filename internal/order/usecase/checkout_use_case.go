package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"aquamart/internal/domain"
	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
	"aquamart/internal/payment/gateway"
)

type AddressRepository interface {
	FindByIDAndUser(ctx context.Context, id, userID int64) (*domain.Address, error)
}

type CartStore interface {
	Get(ctx context.Context, userID int64) ([]domain.CartItem, error)
}

type PromoRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.PromoCode, error)
}

type OrderFactory interface {
	PlaceOrder(ctx context.Context, userID int64, address *domain.Address, cartItems []domain.CartItem, promo *domain.PromoCode, note string) (*domain.Order, error)
}

type OrderRepository interface {
	MarkPaymentInitiated(ctx context.Context, id uint, tranID string) (bool, error)
	SetSessionKey(ctx context.Context, id uint, sessionKey string) error
	RevertToPending(ctx context.Context, id uint) (bool, error)
}

type StatusHistoryRepository interface {
	Append(ctx context.Context, orderID uint, status domain.OrderStatus, note string) error
}

type GatewayClient interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error)
}

// CheckoutUseCase drives the full payment-session request: resolve
// address and cart, build the order, initiate the gateway session, hand
// back the redirect URL.
type CheckoutUseCase struct {
	addresses        AddressRepository
	carts            CartStore
	promos           PromoRepository
	factory          OrderFactory
	orders           OrderRepository
	history          StatusHistoryRepository
	gatewayClient    GatewayClient
	logger           *zap.Logger
	maxRetryAttempts int
}

func NewCheckoutUseCase(
	addresses AddressRepository,
	carts CartStore,
	promos PromoRepository,
	factory OrderFactory,
	orders OrderRepository,
	history StatusHistoryRepository,
	gatewayClient GatewayClient,
	logger *zap.Logger,
	maxRetryAttempts int,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		addresses:        addresses,
		carts:            carts,
		promos:           promos,
		factory:          factory,
		orders:           orders,
		history:          history,
		gatewayClient:    gatewayClient,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (uc *CheckoutUseCase) Checkout(ctx context.Context, userID int64, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	uc.logger.Info("checkout started", zap.Int64("userId", userID), zap.Int64("addressId", req.AddressID))

	address, err := uc.addresses.FindByIDAndUser(ctx, req.AddressID, userID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewRejectionError(apperrors.KindAddress, "shipping address not found")
		}
		return nil, err
	}

	cartItems, err := uc.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, apperrors.NewRejectionError(apperrors.KindEmptyCart, "cart is empty")
	}

	var promo *domain.PromoCode
	if req.PromoCode != "" {
		promo, err = uc.promos.FindByCode(ctx, req.PromoCode)
		if err != nil {
			if _, ok := apperrors.IsNotFoundError(err); ok {
				return nil, apperrors.NewRejectionError(apperrors.KindPromo,
					fmt.Sprintf("promo code %s not found", req.PromoCode))
			}
			return nil, err
		}
	}

	order, err := uc.placeOrderWithRetry(ctx, userID, address, cartItems, promo, req.Note)
	if err != nil {
		return nil, err
	}

	gatewayURL, err := uc.initiateSession(ctx, order, address)
	if err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		GatewayURL: gatewayURL,
		Summary: dto.OrderSummary{
			Subtotal: order.Subtotal,
			Shipping: order.Shipping,
			Discount: order.Discount,
			VAT:      order.VAT,
			Total:    order.Total,
		},
	}, nil
}

// initiateSession issues a fresh transaction id, moves the order to
// PAYMENT_INITIATED and registers it with the gateway. On gateway
// failure the order drops back to PENDING so the user can retry; the
// issued tran_id is abandoned, never reused.
func (uc *CheckoutUseCase) initiateSession(ctx context.Context, order *domain.Order, address *domain.Address) (string, error) {
	tranID := fmt.Sprintf("AQ%d-%d", order.ID, time.Now().UnixNano())

	ok, err := uc.orders.MarkPaymentInitiated(ctx, order.ID, tranID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NewConflictError(fmt.Sprintf("order %d is not in PENDING status", order.ID))
	}

	sess, err := uc.gatewayClient.CreateSession(ctx, gateway.SessionRequest{
		TranID:          tranID,
		Amount:          order.Total,
		CustomerName:    address.Name,
		CustomerPhone:   address.Phone,
		CustomerAddress: address.Address,
		CustomerCity:    address.City,
		ProductSummary:  fmt.Sprintf("aquamart order %s", order.OrderNo),
	})
	if err != nil {
		uc.logger.Warn("gateway session init failed, reverting order",
			zap.Uint("orderId", order.ID), zap.String("tranId", tranID), zap.Error(err))

		if _, revertErr := uc.orders.RevertToPending(ctx, order.ID); revertErr != nil {
			uc.logger.Error("failed to revert order to pending",
				zap.Uint("orderId", order.ID), zap.Error(revertErr))
		}
		if histErr := uc.history.Append(ctx, order.ID, domain.OrderStatusPending,
			fmt.Sprintf("Gateway session init failed: %v", err)); histErr != nil {
			uc.logger.Error("failed to append history", zap.Uint("orderId", order.ID), zap.Error(histErr))
		}

		return "", apperrors.NewRejectionError(apperrors.KindPayment,
			"payment gateway is unavailable, please try again")
	}

	if err := uc.orders.SetSessionKey(ctx, order.ID, sess.SessionKey); err != nil {
		return "", err
	}
	if err := uc.history.Append(ctx, order.ID, domain.OrderStatusPaymentInitiated,
		"Payment session created"); err != nil {
		uc.logger.Error("failed to append history", zap.Uint("orderId", order.ID), zap.Error(err))
	}

	uc.logger.Info("payment session created",
		zap.Uint("orderId", order.ID), zap.String("tranId", tranID))

	return sess.GatewayPageURL, nil
}

func (uc *CheckoutUseCase) placeOrderWithRetry(
	ctx context.Context,
	userID int64,
	address *domain.Address,
	cartItems []domain.CartItem,
	promo *domain.PromoCode,
	note string,
) (*domain.Order, error) {
	maxAttempts := uc.maxRetryAttempts
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err := uc.factory.PlaceOrder(ctx, userID, address, cartItems, promo, note)
		if err == nil {
			return order, nil
		}

		if isDeadlockError(err) {
			if attempt < maxAttempts {
				backoff := backoffs[(attempt-1)%len(backoffs)]
				jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
				time.Sleep(jitter)
				uc.logger.Warn("deadlock detected, retrying checkout",
					zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Int64("userId", userID))
				continue
			}
			break
		}

		return nil, err
	}

	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
