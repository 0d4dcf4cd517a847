package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	StoreDriver      string
	MySQLDSN         string
	SQLitePath       string
	RedisAddr        string
	HTTPAddr         string
	GRPCAddr         string
	ResupplyQuantity int
	SupplierPolicy   string
	BatchInterval    time.Duration
	LockTTL          time.Duration
	LogLevel         string
	ServiceName      string
}

func Load() *Config {
	return &Config{
		StoreDriver:      envOr("RECON_STORE_DRIVER", "mysql"),
		MySQLDSN:         envOr("RECON_MYSQL_DSN", "root:root@tcp(localhost:3306)/retail?parseTime=true&clientFoundRows=true"),
		SQLitePath:       envOr("RECON_SQLITE_PATH", "reconciler.db"),
		RedisAddr:        envOr("RECON_REDIS_ADDR", "localhost:6379"),
		HTTPAddr:         envOr("RECON_HTTP_ADDR", ":8080"),
		GRPCAddr:         envOr("RECON_GRPC_ADDR", ":50051"),
		ResupplyQuantity: envOrInt("RECON_RESUPPLY_QUANTITY", 50),
		SupplierPolicy:   envOr("RECON_SUPPLIER_POLICY", "abort"),
		BatchInterval:    envOrDuration("RECON_BATCH_INTERVAL", 0),
		LockTTL:          envOrDuration("RECON_LOCK_TTL", 10*time.Minute),
		LogLevel:         envOr("RECON_LOG_LEVEL", "info"),
		ServiceName:      envOr("RECON_SERVICE_NAME", "sales-reconciler"),
	}
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN
}

func (c *Config) Validate() error {
	var errs []error
	if c.StoreDriver != "mysql" && c.StoreDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("RECON_STORE_DRIVER: unsupported driver %q", c.StoreDriver))
	}
	if c.ResupplyQuantity < 0 {
		errs = append(errs, fmt.Errorf("RECON_RESUPPLY_QUANTITY: must not be negative, got %d", c.ResupplyQuantity))
	}
	if c.SupplierPolicy != "abort" && c.SupplierPolicy != "flag" {
		errs = append(errs, fmt.Errorf("RECON_SUPPLIER_POLICY: want abort or flag, got %q", c.SupplierPolicy))
	}
	if c.BatchInterval < 0 {
		errs = append(errs, errors.New("RECON_BATCH_INTERVAL: must not be negative"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
