package payment

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aquamart/internal/cart"
	"aquamart/internal/config"
	"aquamart/internal/dto"
	"aquamart/internal/ledger"
	"aquamart/internal/notification"
	orderrepo "aquamart/internal/order/repository"
	"aquamart/internal/payment/controller"
	"aquamart/internal/payment/gateway"
	"aquamart/internal/payment/service"
	"aquamart/internal/payment/usecase"
	productrepo "aquamart/internal/product/repository"
)

func NewModule(db *sql.DB, redisClient *redis.Client, gatewayClient *gateway.Client, cfg *config.Config, logger *zap.Logger) *controller.PaymentController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	itemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	historyRepo := orderrepo.NewMySQLStatusHistoryRepository(db)
	productRepo := productrepo.NewMySQLProductRepository(db)
	notificationRepo := notification.NewMySQLRepository(db)
	cartStore := cart.NewStore(redisClient)

	ledgerSvc := ledger.NewService(productRepo, logger)

	settlementSvc := service.NewSettlementService(
		db,
		orderRepo,
		itemRepo,
		historyRepo,
		ledgerSvc,
		notificationRepo,
		logger,
		cfg.Order.TxTimeout,
	)

	verify := func(payload dto.IPNPayload) bool {
		return gateway.VerifyIPN(payload.Raw, cfg.Gateway.StorePassword)
	}

	webhookUC := usecase.NewSettleWebhookUseCase(
		verify,
		orderRepo,
		historyRepo,
		gatewayClient,
		settlementSvc,
		cartStore,
		cfg.Gateway.AmountTolerance,
		logger,
	)

	refundUC := usecase.NewRefundUseCase(orderRepo, gatewayClient, settlementSvc, logger)

	return controller.NewPaymentController(webhookUC, refundUC, logger)
}
