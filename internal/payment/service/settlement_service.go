package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aquamart/internal/domain"
	apperrors "aquamart/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepository interface {
	MarkPaid(ctx context.Context, tx *sql.Tx, id uint, valID, cardType string, paidAt time.Time) (bool, error)
	MarkRefunded(ctx context.Context, tx *sql.Tx, id uint) (bool, error)
	StatusForUpdate(ctx context.Context, tx *sql.Tx, id uint) (domain.OrderStatus, error)
}

type OrderItemRepository interface {
	ListByOrderIDTx(ctx context.Context, tx *sql.Tx, orderID uint) ([]domain.OrderItem, error)
}

type StatusHistoryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, orderID uint, status domain.OrderStatus, note string) error
}

type Ledger interface {
	ApplyPaidOrder(ctx context.Context, tx *sql.Tx, order *domain.Order, items []domain.OrderItem) error
}

type NotificationRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, n domain.Notification) error
}

type SettleOutcome int

const (
	// SettledNow means this call won the transition and applied the
	// side effects.
	SettledNow SettleOutcome = iota
	// AlreadySettled means another delivery got there first; nothing
	// was applied.
	AlreadySettled
)

// SettlementService owns the one transition that moves money state: the
// atomic PAYMENT_INITIATED -> PAID compare-and-swap with its side
// effects. Everything rides in a single transaction, so N concurrent
// webhook deliveries produce exactly one stock decrement and one
// notification per order.
type SettlementService struct {
	db            TransactionManager
	orders        OrderRepository
	items         OrderItemRepository
	history       StatusHistoryRepository
	ledger        Ledger
	notifications NotificationRepository
	logger        *zap.Logger
	txTimeout     time.Duration
}

func NewSettlementService(
	db TransactionManager,
	orders OrderRepository,
	items OrderItemRepository,
	history StatusHistoryRepository,
	ledger Ledger,
	notifications NotificationRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *SettlementService {
	return &SettlementService{
		db:            db,
		orders:        orders,
		items:         items,
		history:       history,
		ledger:        ledger,
		notifications: notifications,
		logger:        logger,
		txTimeout:     txTimeout,
	}
}

func (s *SettlementService) SettleSuccess(ctx context.Context, order *domain.Order, valID, cardType string) (SettleOutcome, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin settlement transaction", zap.Error(err))
		return 0, err
	}
	defer tx.Rollback()

	won, err := s.orders.MarkPaid(txCtx, tx, order.ID, valID, cardType, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if !won {
		// Lost the compare-and-swap. Re-read under lock to tell a
		// duplicate delivery apart from an illegal transition.
		status, err := s.orders.StatusForUpdate(txCtx, tx, order.ID)
		if err != nil {
			return 0, err
		}
		if status.IsSettled() {
			s.logger.Info("duplicate settlement delivery ignored",
				zap.Uint("orderId", order.ID), zap.String("status", string(status)))
			return AlreadySettled, nil
		}
		return 0, apperrors.NewConflictError(
			fmt.Sprintf("order %d is in %s, cannot settle", order.ID, status))
	}

	items, err := s.items.ListByOrderIDTx(txCtx, tx, order.ID)
	if err != nil {
		return 0, err
	}

	if err := s.ledger.ApplyPaidOrder(txCtx, tx, order, items); err != nil {
		return 0, err
	}

	if err := s.history.Insert(txCtx, tx, order.ID, domain.OrderStatusPaid,
		fmt.Sprintf("Payment confirmed by gateway, val_id %s", valID)); err != nil {
		return 0, err
	}

	if err := s.notifications.Insert(txCtx, tx, domain.Notification{
		UserID: order.UserID,
		Title:  "Payment received",
		Body:   fmt.Sprintf("Your payment of %s for order %s was received.", order.Total.StringFixed(2), order.OrderNo),
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit settlement", zap.Uint("orderId", order.ID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("order settled",
		zap.Uint("orderId", order.ID),
		zap.String("orderNo", order.OrderNo),
		zap.String("valId", valID),
	)

	return SettledNow, nil
}

// SettleRefund flips a PAID order to REFUNDED after the gateway accepted
// the refund. Inventory is left alone.
func (s *SettlementService) SettleRefund(ctx context.Context, order *domain.Order, note string) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	won, err := s.orders.MarkRefunded(txCtx, tx, order.ID)
	if err != nil {
		return err
	}
	if !won {
		return apperrors.NewConflictError(
			fmt.Sprintf("order %d is not in PAID status, cannot refund", order.ID))
	}

	if err := s.history.Insert(txCtx, tx, order.ID, domain.OrderStatusRefunded, note); err != nil {
		return err
	}

	if err := s.notifications.Insert(txCtx, tx, domain.Notification{
		UserID: order.UserID,
		Title:  "Order refunded",
		Body:   fmt.Sprintf("Order %s was refunded for %s.", order.OrderNo, order.Total.StringFixed(2)),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("order refunded", zap.Uint("orderId", order.ID), zap.String("orderNo", order.OrderNo))
	return nil
}
