package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aquamart/internal/commons"
	"aquamart/internal/config"
	"aquamart/internal/infrastructure/logger"
	"aquamart/internal/infrastructure/mysql"
	"aquamart/internal/infrastructure/redisdb"
	"aquamart/internal/order"
	"aquamart/internal/payment"
	"aquamart/internal/payment/gateway"
	"aquamart/internal/server"
)

func main() {
	var cfg *config.Config
	var err error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err = commons.LoadConfigFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	redisClient, err := redisdb.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()
	zapLogger.Info("redis connected")

	gatewayClient := gateway.NewClient(cfg.Gateway)

	checkoutCtrl := order.NewModule(db, redisClient, gatewayClient, cfg, zapLogger)
	paymentCtrl := payment.NewModule(db, redisClient, gatewayClient, cfg, zapLogger)

	router := server.NewRouter(checkoutCtrl, paymentCtrl, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
