package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Pricing  PricingConfig
	Order    OrderConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds the hosted payment gateway credentials and the
// callback URLs handed to it at session-init time.
type GatewayConfig struct {
	BaseURL         string
	StoreID         string
	StorePassword   string
	SuccessURL      string
	FailURL         string
	CancelURL       string
	IPNURL          string
	Timeout         time.Duration
	AmountTolerance decimal.Decimal
}

// PricingConfig carries the business rates as explicit parameters rather
// than constants baked into arithmetic code.
type PricingConfig struct {
	VATRate        decimal.Decimal
	CommissionRate decimal.Decimal
}

type OrderConfig struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "aquamart")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "aquamart")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_BASE_URL", "https://sandbox.gateway.example")
	viper.SetDefault("GATEWAY_STORE_ID", "aquamart-sandbox")
	viper.SetDefault("GATEWAY_STORE_PASSWORD", "sandbox-secret")
	viper.SetDefault("GATEWAY_SUCCESS_URL", "https://aquamart.example/payment/success")
	viper.SetDefault("GATEWAY_FAIL_URL", "https://aquamart.example/payment/fail")
	viper.SetDefault("GATEWAY_CANCEL_URL", "https://aquamart.example/payment/cancel")
	viper.SetDefault("GATEWAY_IPN_URL", "https://aquamart.example/api/payments/ipn")
	viper.SetDefault("GATEWAY_TIMEOUT", "15s")
	viper.SetDefault("GATEWAY_AMOUNT_TOLERANCE", "1.00")
	viper.SetDefault("PRICING_VAT_RATE", "0.15")
	viper.SetDefault("PRICING_COMMISSION_RATE", "0.12")
	viper.SetDefault("ORDER_TX_TIMEOUT", "5s")
	viper.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	viper.SetDefault("LOG_LEVEL", "info")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("parsing DB_CONN_MAX_LIFETIME: %w", err)
	}

	gatewayTimeout, err := time.ParseDuration(viper.GetString("GATEWAY_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parsing GATEWAY_TIMEOUT: %w", err)
	}

	txTimeout, err := time.ParseDuration(viper.GetString("ORDER_TX_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parsing ORDER_TX_TIMEOUT: %w", err)
	}

	tolerance, err := decimal.NewFromString(viper.GetString("GATEWAY_AMOUNT_TOLERANCE"))
	if err != nil {
		return nil, fmt.Errorf("parsing GATEWAY_AMOUNT_TOLERANCE: %w", err)
	}

	vatRate, err := decimal.NewFromString(viper.GetString("PRICING_VAT_RATE"))
	if err != nil {
		return nil, fmt.Errorf("parsing PRICING_VAT_RATE: %w", err)
	}

	commissionRate, err := decimal.NewFromString(viper.GetString("PRICING_COMMISSION_RATE"))
	if err != nil {
		return nil, fmt.Errorf("parsing PRICING_COMMISSION_RATE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Gateway: GatewayConfig{
			BaseURL:         viper.GetString("GATEWAY_BASE_URL"),
			StoreID:         viper.GetString("GATEWAY_STORE_ID"),
			StorePassword:   viper.GetString("GATEWAY_STORE_PASSWORD"),
			SuccessURL:      viper.GetString("GATEWAY_SUCCESS_URL"),
			FailURL:         viper.GetString("GATEWAY_FAIL_URL"),
			CancelURL:       viper.GetString("GATEWAY_CANCEL_URL"),
			IPNURL:          viper.GetString("GATEWAY_IPN_URL"),
			Timeout:         gatewayTimeout,
			AmountTolerance: tolerance,
		},
		Pricing: PricingConfig{
			VATRate:        vatRate,
			CommissionRate: commissionRate,
		},
		Order: OrderConfig{
			TxTimeout:        txTimeout,
			MaxRetryAttempts: viper.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
