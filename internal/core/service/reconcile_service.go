package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/metrics"
	"github.com/rl1809/sales-reconciler/internal/port"
)

const defaultLockTTL = 10 * time.Minute

type Options struct {
	SupplierPolicy SupplierPolicy
	// LockTTL bounds how long a crashed run can block the next one.
	LockTTL time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// ReconcileService runs one reconciliation batch at a time against a Data Store.
// The cache is optional; without it only batches of this process are serialised.
type ReconcileService struct {
	running sync.Mutex
	db      port.DatabaseRepository
	cache   port.CacheRepository
	writer  *LedgerWriter
	policy  SupplierPolicy
	lockTTL time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewReconcileService(db port.DatabaseRepository, cache port.CacheRepository, opts Options) *ReconcileService {
	s := &ReconcileService{
		db:      db,
		cache:   cache,
		writer:  NewLedgerWriter(db),
		policy:  opts.SupplierPolicy,
		lockTTL: opts.LockTTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.policy == "" {
		s.policy = SupplierPolicyAbort
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Reconcile loads the pending queue and inventory, folds the queue, and commits
// the outcome. Any error leaves the store unchanged. Cancelling ctx before the
// commit discards the fold; once the commit starts it runs to completion.
func (s *ReconcileService) Reconcile(ctx context.Context, resupplyQuantity int) (*domain.BatchResult, error) {
	if resupplyQuantity < 0 {
		return nil, ErrInvalidResupplyQuantity
	}

	if !s.running.TryLock() {
		s.metrics.ObserveSkipped()
		return nil, ErrBatchInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	batchID := uuid.NewString()
	logger := s.logger.With(slog.String("batch_id", batchID))

	if s.cache != nil {
		ok, err := s.cache.AcquireBatchLock(ctx, batchID, s.lockTTL)
		if err != nil {
			s.metrics.ObserveFailed(time.Since(start))
			return nil, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !ok {
			s.metrics.ObserveSkipped()
			return nil, ErrBatchInProgress
		}
		defer func() {
			if err := s.cache.ReleaseBatchLock(context.WithoutCancel(ctx), batchID); err != nil {
				logger.WarnContext(ctx, "release batch lock failed", slog.Any("error", err))
			}
		}()
	}

	logger.InfoContext(ctx, "batch started", slog.Int("resupply_quantity", resupplyQuantity))

	result, err := s.run(ctx, logger, batchID, resupplyQuantity)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveFailed(elapsed)
		logger.ErrorContext(ctx, "batch failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
		return nil, err
	}

	if result.Empty() {
		s.metrics.ObserveEmpty(elapsed)
		logger.InfoContext(ctx, "batch empty", slog.Duration("elapsed", elapsed))
		return result, nil
	}

	s.metrics.ObserveCommitted(result, elapsed)
	logger.InfoContext(ctx, "batch committed",
		slog.Int("transactions", result.Summary.Transactions),
		slog.Int("fulfilled", result.Summary.Fulfilled),
		slog.Int("stockouts", result.Summary.Stockouts),
		slog.Int("delta_rows", len(result.Delta)),
		slog.String("fulfilled_revenue", result.Summary.FulfilledRevenue.StringFixed(2)),
		slog.String("lost_revenue", result.Summary.LostRevenue.StringFixed(2)),
		slog.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (s *ReconcileService) run(ctx context.Context, logger *slog.Logger, batchID string, resupplyQuantity int) (*domain.BatchResult, error) {
	inv, err := LoadInventory(ctx, s.db)
	if err != nil {
		return nil, err
	}

	pending, err := LoadPendingSales(ctx, s.db)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return &domain.BatchResult{
			BatchID: batchID,
			Delta:   domain.InventoryDelta{},
			Summary: domain.BatchSummary{FulfilledRevenue: decimal.Zero, LostRevenue: decimal.Zero},
		}, nil
	}

	suppliers, lookupErrs := s.resolveSuppliers(ctx, pending)

	engine := &Engine{
		ResupplyQuantity: resupplyQuantity,
		SupplierPolicy:   s.policy,
		SupplierErrors:   lookupErrs,
		Now:              s.now,
	}
	fold, err := engine.Fold(inv, pending, suppliers)
	if err != nil {
		return nil, err
	}

	for _, order := range fold.Orders {
		attrs := []any{
			slog.Int64("product_id", int64(order.ProductID)),
			slog.Int64("supplier_id", int64(order.SupplierID)),
			slog.Int("quantity", order.Quantity),
		}
		if order.SupplierUnresolved {
			logger.WarnContext(ctx, "resupply order without supplier", attrs...)
			continue
		}
		logger.DebugContext(ctx, "resupply order staged", attrs...)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled before commit: %w", err)
	}

	if err := s.writer.Commit(context.WithoutCancel(ctx), batchID, pending, fold); err != nil {
		return nil, err
	}

	if s.cache != nil && len(fold.Delta) > 0 {
		if err := s.cache.MirrorStock(ctx, fold.Delta); err != nil && !errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "stock mirror failed", slog.Any("error", err))
		}
	}

	return &domain.BatchResult{
		BatchID: batchID,
		Sales:   fold.Sales,
		Orders:  fold.Orders,
		Delta:   fold.Delta,
		Summary: fold.Summary,
	}, nil
}
