package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jafarshop/dropsim/internal/logger"
)

type Config struct {
	Port        string
	Environment string
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	Supplier    SupplierConfig
	Automation  AutomationConfig
}

type LogConfig struct {
	Level      string
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ToLoggerOptions converts to logger options
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig selects the repository backend. Driver "memory" keeps
// everything in process maps; "sqlite" and "postgres" go through gorm.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
	// AnalyticsTTL is how long a computed report stays cached
	AnalyticsTTL time.Duration
}

type QueueConfig struct {
	Enabled     bool
	Addr        string
	Password    string
	DB          int
	Concurrency int
	// SweepCron schedules the abandoned cart sweep, RefreshCron the fulfillment refresh
	SweepCron   string
	RefreshCron string
}

type SupplierConfig struct {
	Mode        string // simulator | http
	Endpoint    string
	AccessToken string
	CallTimeout time.Duration
	// Shipping quote used by the simulator
	ShippingBase  decimal.Decimal
	ShippingPerKg decimal.Decimal
	// Seed > 0 switches the simulator to seeded random shipping quotes
	Seed int64
}

type AutomationConfig struct {
	AutoAcceptOrders bool
	SeedDemoData     bool
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", "memory")
	viper.SetDefault("SUPPLIER_MODE", "simulator")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	shippingBase, err := decimal.NewFromString(getEnvOrViper("SUPPLIER_SHIPPING_BASE", "5.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPLIER_SHIPPING_BASE: %w", err)
	}
	shippingPerKg, err := decimal.NewFromString(getEnvOrViper("SUPPLIER_SHIPPING_PER_KG", "0.50"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPLIER_SHIPPING_PER_KG: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Log: LogConfig{
			Level:      getEnvOrViper("LOG_LEVEL", "info"),
			Dir:        getEnvOrViper("LOG_DIR", ""),
			Filename:   getEnvOrViper("LOG_FILENAME", "dropsim.log"),
			MaxSizeMB:  getIntOrViper("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntOrViper("LOG_MAX_BACKUPS", 7),
			MaxAgeDays: getIntOrViper("LOG_MAX_AGE_DAYS", 30),
			Compress:   getBoolOrViper("LOG_COMPRESS", true),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnvOrViper("DB_DRIVER", "memory")),
			DSN:          getEnvOrViper("DB_DSN", "file:dropsim?mode=memory&cache=shared"),
			MaxOpenConns: getIntOrViper("DB_MAX_OPEN_CONNS", 0),
			MaxIdleConns: getIntOrViper("DB_MAX_IDLE_CONNS", 0),
		},
		Redis: RedisConfig{
			Enabled:      getBoolOrViper("REDIS_ENABLED", false),
			Addr:         getEnvOrViper("REDIS_ADDR", "127.0.0.1:6379"),
			Password:     getEnvOrViper("REDIS_PASSWORD", ""),
			DB:           getIntOrViper("REDIS_DB", 0),
			Prefix:       getEnvOrViper("REDIS_PREFIX", "dropsim"),
			AnalyticsTTL: getDurationOrViper("REDIS_ANALYTICS_TTL", time.Minute),
		},
		Queue: QueueConfig{
			Enabled:     getBoolOrViper("QUEUE_ENABLED", false),
			Addr:        getEnvOrViper("QUEUE_ADDR", "127.0.0.1:6379"),
			Password:    getEnvOrViper("QUEUE_PASSWORD", ""),
			DB:          getIntOrViper("QUEUE_DB", 1),
			Concurrency: getIntOrViper("QUEUE_CONCURRENCY", 10),
			SweepCron:   getEnvOrViper("QUEUE_SWEEP_CRON", "@every 1h"),
			RefreshCron: getEnvOrViper("QUEUE_REFRESH_CRON", "@every 15m"),
		},
		Supplier: SupplierConfig{
			Mode:          strings.ToLower(getEnvOrViper("SUPPLIER_MODE", "simulator")),
			Endpoint:      getEnvOrViper("SUPPLIER_ENDPOINT", ""),
			AccessToken:   getEnvOrViper("SUPPLIER_ACCESS_TOKEN", ""),
			CallTimeout:   getDurationOrViper("SUPPLIER_CALL_TIMEOUT", 30*time.Second),
			ShippingBase:  shippingBase,
			ShippingPerKg: shippingPerKg,
			Seed:          int64(getIntOrViper("SUPPLIER_SEED", 0)),
		},
		Automation: AutomationConfig{
			AutoAcceptOrders: getBoolOrViper("AUTO_ACCEPT_ORDERS", true),
			SeedDemoData:     getBoolOrViper("SEED_DEMO_DATA", true),
		},
	}

	// Validate required fields
	switch cfg.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be memory, sqlite or postgres, got %q", cfg.Database.Driver)
	}
	switch cfg.Supplier.Mode {
	case "simulator":
	case "http":
		if cfg.Supplier.Endpoint == "" {
			return nil, fmt.Errorf("SUPPLIER_ENDPOINT is required when SUPPLIER_MODE=http")
		}
		if cfg.Supplier.AccessToken == "" {
			return nil, fmt.Errorf("SUPPLIER_ACCESS_TOKEN is required when SUPPLIER_MODE=http")
		}
	default:
		return nil, fmt.Errorf("SUPPLIER_MODE must be simulator or http, got %q", cfg.Supplier.Mode)
	}
	if cfg.Supplier.CallTimeout <= 0 {
		return nil, fmt.Errorf("SUPPLIER_CALL_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrViper(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return defaultValue
}

func getBoolOrViper(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return defaultValue
}

func getDurationOrViper(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	return defaultValue
}
