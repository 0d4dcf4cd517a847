package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/sales-reconciler/internal/adapter/handler"
	"github.com/rl1809/sales-reconciler/internal/adapter/storage"
	"github.com/rl1809/sales-reconciler/internal/config"
	"github.com/rl1809/sales-reconciler/internal/core/service"
	"github.com/rl1809/sales-reconciler/internal/logging"
	"github.com/rl1809/sales-reconciler/internal/metrics"
	"github.com/rl1809/sales-reconciler/internal/port"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.ServiceName)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize data store
	db, err := storage.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		logger.Error("failed to open data store", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("connected to data store", slog.String("driver", cfg.StoreDriver))

	// Initialize Redis; an empty address runs without lock and cache
	var (
		rdb   *redis.Client
		cache port.CacheRepository
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
	}

	policy, _ := service.ParseSupplierPolicy(cfg.SupplierPolicy)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reconciler := service.NewReconcileService(storage.NewSQLAdapter(db), cache, service.Options{
		SupplierPolicy: policy,
		LockTTL:        cfg.LockTTL,
		Logger:         logger,
		Metrics:        metrics.New(registry),
	})

	// Scheduled batches
	var wg sync.WaitGroup
	if cfg.BatchInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batchLoop(ctx, logger, reconciler, cfg.BatchInterval, cfg.ResupplyQuantity)
		}()
		logger.Info("scheduled batches enabled", slog.Duration("interval", cfg.BatchInterval))
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterReconcilerServer(grpcServer, handler.NewGRPCHandler(reconciler, cfg.ResupplyQuantity))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handler.ReconcilerServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", cfg.GRPCAddr), slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", slog.Any("error", err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(reconciler, cfg.ResupplyQuantity)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.NewRouter(httpHandler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", slog.Any("error", err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Stop the scheduler; a batch already committing finishes first
	cancel()
	wg.Wait()

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logger.Info("connections closed")
}

// batchLoop runs a batch every interval until ctx is cancelled.
func batchLoop(ctx context.Context, logger *slog.Logger, reconciler *service.ReconcileService, interval time.Duration, resupplyQuantity int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := reconciler.Reconcile(ctx, resupplyQuantity); err != nil {
			if service.IsFatal(err) {
				logger.Error("scheduled batch failed", slog.Any("error", err))
			} else {
				logger.Info("scheduled batch skipped", slog.Any("reason", err))
			}
		}
	}
}
