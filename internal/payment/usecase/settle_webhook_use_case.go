package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"aquamart/internal/domain"
	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
	"aquamart/internal/payment/gateway"
	"aquamart/internal/payment/service"
)

type SignatureVerifier func(payload dto.IPNPayload) bool

type OrderRepository interface {
	FindByTranID(ctx context.Context, tranID string) (*domain.Order, error)
	RevertToPending(ctx context.Context, id uint) (bool, error)
}

type StatusHistoryRepository interface {
	Append(ctx context.Context, orderID uint, status domain.OrderStatus, note string) error
}

type GatewayValidator interface {
	ValidateTransaction(ctx context.Context, valID string) (*gateway.ValidationResponse, error)
}

type Settler interface {
	SettleSuccess(ctx context.Context, order *domain.Order, valID, cardType string) (service.SettleOutcome, error)
}

type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

// SettleWebhookUseCase processes the gateway's asynchronous payment
// notification. The payload arrives from the public internet and is
// trusted for nothing: it passes a signature check, an order lookup, an
// independent server-side validation and an amount check before the
// order may move to PAID. Each gate fails as a rejection, never a panic.
type SettleWebhookUseCase struct {
	verify    SignatureVerifier
	orders    OrderRepository
	history   StatusHistoryRepository
	validator GatewayValidator
	settler   Settler
	carts     CartClearer
	tolerance decimal.Decimal
	logger    *zap.Logger
}

func NewSettleWebhookUseCase(
	verify SignatureVerifier,
	orders OrderRepository,
	history StatusHistoryRepository,
	validator GatewayValidator,
	settler Settler,
	carts CartClearer,
	tolerance decimal.Decimal,
	logger *zap.Logger,
) *SettleWebhookUseCase {
	return &SettleWebhookUseCase{
		verify:    verify,
		orders:    orders,
		history:   history,
		validator: validator,
		settler:   settler,
		carts:     carts,
		tolerance: tolerance,
		logger:    logger,
	}
}

func (uc *SettleWebhookUseCase) Process(ctx context.Context, payload dto.IPNPayload) (*dto.WebhookResult, error) {
	// Gate 1: the keyed signature over the payload's own fields.
	if !uc.verify(payload) {
		uc.logger.Warn("webhook signature verification failed",
			zap.String("tranId", payload.TranID),
			zap.String("valId", payload.ValID),
			zap.String("status", payload.Status),
			zap.Any("payload", payload.Raw))
		uc.demote(ctx, payload.TranID, "Webhook rejected: signature verification failed")
		return nil, apperrors.NewRejectionError(apperrors.KindPayment, "webhook rejected")
	}

	// Gate 2: the transaction id must name exactly one issued order.
	order, err := uc.orders.FindByTranID(ctx, payload.TranID)
	if err != nil {
		return nil, err
	}

	switch payload.Status {
	case gateway.StatusValid, gateway.StatusValidated:
		return uc.settle(ctx, order, payload)
	case gateway.StatusFailed, gateway.StatusCancelled:
		return uc.recordFailure(ctx, order, payload.Status)
	default:
		uc.logger.Warn("webhook carries unknown status",
			zap.String("tranId", payload.TranID), zap.String("status", payload.Status))
		uc.demoteOrder(ctx, order, fmt.Sprintf("Webhook rejected: unknown status %s", payload.Status))
		return nil, apperrors.NewRejectionError(apperrors.KindPayment, "webhook rejected")
	}
}

func (uc *SettleWebhookUseCase) settle(ctx context.Context, order *domain.Order, payload dto.IPNPayload) (*dto.WebhookResult, error) {
	// Gate 3: ask the gateway's own server. A GatewayError here is
	// infrastructure, not forgery; it propagates so the delivery is
	// retried later.
	validation, err := uc.validator.ValidateTransaction(ctx, payload.ValID)
	if err != nil {
		return nil, err
	}

	if !validation.Confirmed() {
		uc.logger.Warn("gateway validation disagrees with webhook status",
			zap.String("tranId", payload.TranID),
			zap.String("claimed", payload.Status),
			zap.String("validated", validation.Status),
			zap.Any("payload", payload.Raw))
		uc.demoteOrder(ctx, order, "Webhook rejected: gateway validation did not confirm payment")
		return nil, apperrors.NewRejectionError(apperrors.KindPayment, "webhook rejected")
	}

	if validation.TranID != "" && validation.TranID != payload.TranID {
		uc.logger.Warn("gateway validation names a different transaction",
			zap.String("webhookTranId", payload.TranID),
			zap.String("validatedTranId", validation.TranID))
		uc.demoteOrder(ctx, order, "Webhook rejected: validation transaction mismatch")
		return nil, apperrors.NewRejectionError(apperrors.KindPayment, "webhook rejected")
	}

	// Gate 4: the settled amount must match the order total within the
	// rounding tolerance of the gateway.
	diff := order.Total.Sub(validation.Amount).Abs()
	if diff.GreaterThan(uc.tolerance) {
		uc.logger.Warn("webhook amount mismatch",
			zap.String("tranId", payload.TranID),
			zap.String("orderTotal", order.Total.StringFixed(2)),
			zap.String("claimedAmount", validation.Amount.StringFixed(2)),
			zap.Any("payload", payload.Raw))
		uc.demoteOrder(ctx, order, fmt.Sprintf(
			"Webhook rejected: amount mismatch, order %s vs claimed %s",
			order.Total.StringFixed(2), validation.Amount.StringFixed(2)))
		return nil, apperrors.NewRejectionError(apperrors.KindPayment, "webhook rejected")
	}

	// Gate 5: idempotent terminal transition plus side effects, one
	// atomic unit.
	outcome, err := uc.settler.SettleSuccess(ctx, order, payload.ValID, payload.CardType)
	if err != nil {
		return nil, err
	}

	if outcome == service.AlreadySettled {
		return &dto.WebhookResult{
			Outcome: dto.WebhookAlreadySettled,
			OrderID: order.ID,
			OrderNo: order.OrderNo,
		}, nil
	}

	// Cart clearing lives in a different store, outside the settlement
	// transaction; it is idempotent, so a retried delivery is harmless.
	if err := uc.carts.Clear(ctx, order.UserID); err != nil {
		uc.logger.Error("failed to clear cart after settlement",
			zap.Uint("orderId", order.ID), zap.Int64("userId", order.UserID), zap.Error(err))
	}

	return &dto.WebhookResult{
		Outcome: dto.WebhookSettled,
		OrderID: order.ID,
		OrderNo: order.OrderNo,
	}, nil
}

func (uc *SettleWebhookUseCase) recordFailure(ctx context.Context, order *domain.Order, status string) (*dto.WebhookResult, error) {
	reverted, err := uc.orders.RevertToPending(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if reverted {
		note := "Payment failed at gateway"
		if status == gateway.StatusCancelled {
			note = "Payment cancelled by customer"
		}
		if err := uc.history.Append(ctx, order.ID, domain.OrderStatusPending, note); err != nil {
			uc.logger.Error("failed to append history", zap.Uint("orderId", order.ID), zap.Error(err))
		}
	}

	uc.logger.Info("payment failure recorded",
		zap.Uint("orderId", order.ID), zap.String("status", status), zap.Bool("reverted", reverted))

	return &dto.WebhookResult{
		Outcome: dto.WebhookFailureNoted,
		OrderID: order.ID,
		OrderNo: order.OrderNo,
	}, nil
}

// demote looks the order up first; used when the payload failed the
// signature gate and nothing in it can be trusted, including tran_id.
func (uc *SettleWebhookUseCase) demote(ctx context.Context, tranID, note string) {
	if tranID == "" {
		return
	}
	order, err := uc.orders.FindByTranID(ctx, tranID)
	if err != nil {
		return
	}
	uc.demoteOrder(ctx, order, note)
}

// demoteOrder pushes an order out of PAYMENT_INITIATED after a
// trust-boundary rejection, so it ends in a well-defined retryable state
// rather than parked behind a dead session.
func (uc *SettleWebhookUseCase) demoteOrder(ctx context.Context, order *domain.Order, note string) {
	reverted, err := uc.orders.RevertToPending(ctx, order.ID)
	if err != nil {
		uc.logger.Error("failed to revert order", zap.Uint("orderId", order.ID), zap.Error(err))
		return
	}
	if !reverted {
		return
	}
	if err := uc.history.Append(ctx, order.ID, domain.OrderStatusPending, note); err != nil {
		uc.logger.Error("failed to append history", zap.Uint("orderId", order.ID), zap.Error(err))
	}
}

// Poll is the synchronous read a returning browser uses while the
// asynchronous webhook is still in flight.
func (uc *SettleWebhookUseCase) Poll(ctx context.Context, tranID string) (*dto.StatusPollResponse, error) {
	order, err := uc.orders.FindByTranID(ctx, tranID)
	if err != nil {
		return nil, err
	}

	return &dto.StatusPollResponse{
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		Status:  string(order.Status),
		Paid:    order.Status.IsSettled(),
	}, nil
}
