package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"aquamart/internal/domain"
	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
)

type RefundOrderRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
}

type RefundGateway interface {
	InitiateRefund(ctx context.Context, valID string, amount decimal.Decimal, remark string) error
}

type RefundSettler interface {
	SettleRefund(ctx context.Context, order *domain.Order, note string) error
}

// RefundUseCase drives the explicit admin refund: gateway first, status
// second. If the gateway refuses, the order stays PAID.
type RefundUseCase struct {
	orders  RefundOrderRepository
	gateway RefundGateway
	settler RefundSettler
	logger  *zap.Logger
}

func NewRefundUseCase(orders RefundOrderRepository, gw RefundGateway, settler RefundSettler, logger *zap.Logger) *RefundUseCase {
	return &RefundUseCase{
		orders:  orders,
		gateway: gw,
		settler: settler,
		logger:  logger,
	}
}

func (uc *RefundUseCase) Refund(ctx context.Context, orderID uint, reason string) (*dto.RefundResponse, error) {
	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPaid {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order %d is in %s, only PAID orders can be refunded", orderID, order.Status))
	}

	remark := reason
	if remark == "" {
		remark = "Refund requested"
	}

	if err := uc.gateway.InitiateRefund(ctx, order.ValID, order.Total, remark); err != nil {
		uc.logger.Error("gateway refund failed", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, apperrors.NewRejectionError(apperrors.KindPayment,
			"payment gateway rejected the refund")
	}

	if err := uc.settler.SettleRefund(ctx, order, fmt.Sprintf("Refunded via gateway: %s", remark)); err != nil {
		return nil, err
	}

	return &dto.RefundResponse{
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		Status:  string(domain.OrderStatusRefunded),
	}, nil
}
