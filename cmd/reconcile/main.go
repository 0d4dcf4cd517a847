package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-reconciler/internal/adapter/storage"
	"github.com/rl1809/sales-reconciler/internal/config"
	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/core/service"
	"github.com/rl1809/sales-reconciler/internal/logging"
	"github.com/rl1809/sales-reconciler/internal/port"
)

func main() {
	cfg := config.Load()
	flag.IntVar(&cfg.ResupplyQuantity, "resupply", cfg.ResupplyQuantity, "quantity a stocked-out product is reset to")
	flag.StringVar(&cfg.SupplierPolicy, "supplier-policy", cfg.SupplierPolicy, "abort or flag")
	flag.StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "mysql or sqlite")
	flag.Parse()

	logger := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(2)
	}

	// cancellation is honoured up to the commit, never during it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		logger.Error("failed to open data store", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		cache = storage.NewRedisAdapter(rdb)
	}

	policy, _ := service.ParseSupplierPolicy(cfg.SupplierPolicy)
	reconciler := service.NewReconcileService(storage.NewSQLAdapter(db), cache, service.Options{
		SupplierPolicy: policy,
		LockTTL:        cfg.LockTTL,
		Logger:         logger,
	})

	result, err := reconciler.Reconcile(ctx, cfg.ResupplyQuantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(1)
	}

	printReport(result, cfg.ResupplyQuantity)
}

func printReport(result *domain.BatchResult, resupplyQuantity int) {
	s := result.Summary
	fmt.Println("========== RECONCILIATION RESULTS ==========")
	fmt.Printf("Batch:              %s\n", result.BatchID)
	fmt.Printf("Resupply Quantity:  %d\n", resupplyQuantity)
	fmt.Printf("Transactions:       %d\n", s.Transactions)
	fmt.Printf("Fulfilled:          %d\n", s.Fulfilled)
	fmt.Printf("Stockouts:          %d\n", s.Stockouts)
	fmt.Printf("Units Sold:         %d\n", s.UnitsSold)
	fmt.Printf("Resupply Orders:    %d\n", len(result.Orders))
	fmt.Printf("Unresolved:         %d\n", s.UnresolvedSuppliers)
	fmt.Printf("Inventory Updates:  %d\n", len(result.Delta))
	fmt.Printf("Fulfilled Revenue:  %s\n", s.FulfilledRevenue.StringFixed(2))
	fmt.Printf("Lost Revenue:       %s\n", s.LostRevenue.StringFixed(2))
	fmt.Println("============================================")
}
