package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"aquamart/internal/domain"
	apperrors "aquamart/internal/errors"
	"aquamart/internal/pricing"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ProductRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (uint, error)
	SetOrderNo(ctx context.Context, tx *sql.Tx, id uint, orderNo string) error
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (uint, error)
}

type StatusHistoryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, orderID uint, status domain.OrderStatus, note string) error
}

type PromoRepository interface {
	IncrementUsage(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

type Quoter interface {
	Quote(lines []pricing.CartLine, city string, promo *domain.PromoCode) (*pricing.Quote, error)
}

// CheckoutService is the order factory: it turns a cart plus a quote
// into one immutable order snapshot, atomically, or not at all.
type CheckoutService struct {
	db        TransactionManager
	products  ProductRepository
	orders    OrderRepository
	items     OrderItemRepository
	history   StatusHistoryRepository
	promos    PromoRepository
	quoter    Quoter
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewCheckoutService(
	db TransactionManager,
	products ProductRepository,
	orders OrderRepository,
	items OrderItemRepository,
	history StatusHistoryRepository,
	promos PromoRepository,
	quoter Quoter,
	logger *zap.Logger,
	txTimeout time.Duration,
) *CheckoutService {
	return &CheckoutService{
		db:        db,
		products:  products,
		orders:    orders,
		items:     items,
		history:   history,
		promos:    promos,
		quoter:    quoter,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// PlaceOrder creates an order in PENDING. Everything happens inside one
// transaction: products are locked and price-read, the quote is computed
// from those locked rows, items are snapshotted, the promo counter is
// bumped. Any rejection rolls the whole thing back; no partial orders.
// Stock is verified but NOT decremented here; that happens only at
// confirmed settlement.
func (s *CheckoutService) PlaceOrder(
	ctx context.Context,
	userID int64,
	address *domain.Address,
	cartItems []domain.CartItem,
	promo *domain.PromoCode,
	note string,
) (*domain.Order, error) {
	if len(cartItems) == 0 {
		return nil, apperrors.NewRejectionError(apperrors.KindEmptyCart, "cart is empty")
	}

	// Lock in ascending productId order to avoid deadlocks between
	// concurrent checkouts sharing products.
	sorted := make([]domain.CartItem, len(cartItems))
	copy(sorted, cartItems)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	// Rollback is a no-op after commit.
	defer tx.Rollback()

	lines := make([]pricing.CartLine, 0, len(sorted))
	snapshots := make([]domain.OrderItem, 0, len(sorted))

	for _, cartItem := range sorted {
		if cartItem.Quantity <= 0 {
			return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
				Field:   "quantity",
				Message: fmt.Sprintf("quantity for product %d must be positive", cartItem.ProductID),
			})
		}

		product, err := s.products.FindByIDForUpdate(txCtx, tx, cartItem.ProductID)
		if err != nil {
			if _, ok := apperrors.IsNotFoundError(err); ok {
				return nil, apperrors.NewRejectionError(apperrors.KindStock,
					fmt.Sprintf("product %d is no longer available", cartItem.ProductID))
			}
			return nil, err
		}

		if !product.IsActive {
			return nil, apperrors.NewRejectionError(apperrors.KindStock,
				fmt.Sprintf("%s is no longer available", product.Name))
		}
		if !product.HasStockFor(cartItem.Quantity) {
			return nil, apperrors.NewRejectionError(apperrors.KindStock,
				fmt.Sprintf("insufficient stock for %s: %d available, %d requested",
					product.Name, product.Stock, cartItem.Quantity))
		}

		line := pricing.CartLine{
			ProductID:    product.ID,
			Name:         product.Name,
			UnitPrice:    product.Price,
			Quantity:     cartItem.Quantity,
			FreeShipping: product.FreeShipping,
		}
		lines = append(lines, line)

		snapshots = append(snapshots, domain.OrderItem{
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Name:      product.Name,
			Image:     product.Image,
			UnitPrice: product.Price,
			Quantity:  cartItem.Quantity,
			LineTotal: line.LineTotal(),
		})
	}

	// Quote on the locked prices, so there is no window between
	// price-check and order-write.
	quote, err := s.quoter.Quote(lines, address.City, promo)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		ShipName:    address.Name,
		ShipPhone:   address.Phone,
		ShipAddress: address.Address,
		ShipCity:    address.City,
		Note:        note,
		Subtotal:    quote.Subtotal,
		Shipping:    quote.Shipping,
		VAT:         quote.VAT,
		Discount:    quote.Discount,
		Total:       quote.Total,
		Commission:  quote.Commission,
		CreatedAt:   time.Now().UTC(),
	}
	if promo != nil {
		order.PromoID = &promo.ID
		order.PromoCode = promo.Code
	}

	orderID, err := s.orders.Insert(txCtx, tx, order)
	if err != nil {
		s.logger.Error("failed to insert order", zap.Error(err))
		return nil, err
	}
	order.ID = orderID
	order.OrderNo = fmt.Sprintf("AQ-%06d", orderID)

	if err := s.orders.SetOrderNo(txCtx, tx, orderID, order.OrderNo); err != nil {
		return nil, err
	}

	for _, item := range snapshots {
		item.OrderID = orderID
		if _, err := s.items.Insert(txCtx, tx, item); err != nil {
			s.logger.Error("failed to insert order item", zap.Uint("orderId", orderID), zap.Error(err))
			return nil, err
		}
	}

	if err := s.history.Insert(txCtx, tx, orderID, domain.OrderStatusPending, "Order created, awaiting payment"); err != nil {
		return nil, err
	}

	if promo != nil {
		ok, err := s.promos.IncrementUsage(txCtx, tx, promo.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost the race on the last remaining use; the whole
			// order rolls back with it.
			return nil, apperrors.NewRejectionError(apperrors.KindPromo,
				fmt.Sprintf("promo code %s usage limit reached", promo.Code))
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit order", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order created",
		zap.Uint("orderId", orderID),
		zap.String("orderNo", order.OrderNo),
		zap.Int64("userId", userID),
		zap.Int("itemCount", len(snapshots)),
		zap.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}
