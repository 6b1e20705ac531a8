package order

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aquamart/internal/cart"
	"aquamart/internal/config"
	"aquamart/internal/order/controller"
	orderrepo "aquamart/internal/order/repository"
	"aquamart/internal/order/service"
	"aquamart/internal/order/usecase"
	"aquamart/internal/payment/gateway"
	"aquamart/internal/pricing"
	productrepo "aquamart/internal/product/repository"
	promorepo "aquamart/internal/promo/repository"
	userrepo "aquamart/internal/user/repository"
)

func NewModule(db *sql.DB, redisClient *redis.Client, gatewayClient *gateway.Client, cfg *config.Config, logger *zap.Logger) *controller.CheckoutController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	itemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	historyRepo := orderrepo.NewMySQLStatusHistoryRepository(db)
	productRepo := productrepo.NewMySQLProductRepository(db)
	promoRepo := promorepo.NewMySQLPromoRepository(db)
	addressRepo := userrepo.NewMySQLAddressRepository(db)
	cartStore := cart.NewStore(redisClient)

	engine := pricing.NewEngine(cfg.Pricing.VATRate, cfg.Pricing.CommissionRate)

	factory := service.NewCheckoutService(
		db,
		productRepo,
		orderRepo,
		itemRepo,
		historyRepo,
		promoRepo,
		engine,
		logger,
		cfg.Order.TxTimeout,
	)

	checkoutUC := usecase.NewCheckoutUseCase(
		addressRepo,
		cartStore,
		promoRepo,
		factory,
		orderRepo,
		historyRepo,
		gatewayClient,
		logger,
		cfg.Order.MaxRetryAttempts,
	)

	return controller.NewCheckoutController(checkoutUC, logger)
}
