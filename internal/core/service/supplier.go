package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/port"
)

// resolveSuppliers looks up the supplier of every product in the batch before
// the fold starts. The cache is consulted first; cache failures fall through to
// the store. Store failures are returned per product and only fail the batch
// if that product stocks out.
func (s *ReconcileService) resolveSuppliers(ctx context.Context, sales []domain.PendingSale) (SupplierDirectory, map[domain.ProductID]error) {
	dir := make(SupplierDirectory)
	lookupErrs := make(map[domain.ProductID]error)
	seen := make(map[domain.ProductID]bool)

	for _, sale := range sales {
		id := sale.ProductID
		if seen[id] {
			continue
		}
		seen[id] = true

		if s.cache != nil {
			supplierID, ok, err := s.cache.GetSupplier(ctx, id)
			if err != nil {
				s.logger.WarnContext(ctx, "supplier cache read failed",
					slog.Int64("product_id", int64(id)), slog.Any("error", err))
			} else if ok {
				dir[id] = supplierID
				continue
			}
		}

		supplierID, err := s.db.LookupSupplier(ctx, id)
		if errors.Is(err, port.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.WarnContext(ctx, "supplier lookup failed",
				slog.Int64("product_id", int64(id)), slog.Any("error", err))
			lookupErrs[id] = err
			continue
		}
		dir[id] = supplierID

		if s.cache != nil {
			if err := s.cache.SetSupplier(ctx, id, supplierID); err != nil {
				s.logger.WarnContext(ctx, "supplier cache write failed",
					slog.Int64("product_id", int64(id)), slog.Any("error", err))
			}
		}
	}
	return dir, lookupErrs
}
