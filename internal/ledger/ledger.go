package ledger

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"aquamart/internal/domain"
)

type ProductRepository interface {
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
}

// Service applies the inventory and commission bookkeeping of a
// confirmed settlement. It runs only inside the settlement transaction,
// once per order.
type Service struct {
	products ProductRepository
	logger   *zap.Logger
}

func NewService(products ProductRepository, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		logger:   logger,
	}
}

// ApplyPaidOrder decrements stock for every snapshotted line item. No
// negative-stock re-check happens here: quantities were verified at
// order creation, and oversell between unpaid orders is an accepted
// trade-off. The commission on the order row is an arithmetic record for
// the payout subsystem, not a cleared vendor balance.
func (s *Service) ApplyPaidOrder(ctx context.Context, tx *sql.Tx, order *domain.Order, items []domain.OrderItem) error {
	for _, item := range items {
		if err := s.products.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	s.logger.Info("inventory and commission booked",
		zap.Uint("orderId", order.ID),
		zap.String("orderNo", order.OrderNo),
		zap.Int("itemCount", len(items)),
		zap.String("commission", order.Commission.StringFixed(2)),
	)

	return nil
}
