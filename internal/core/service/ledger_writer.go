package service

import (
	"context"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/port"
)

type LedgerWriter struct {
	db port.DatabaseRepository
}

func NewLedgerWriter(db port.DatabaseRepository) *LedgerWriter {
	return &LedgerWriter{db: db}
}

// Commit persists a folded batch in one store transaction. The queue clear is
// the last write, so a failure at any step leaves the queue intact and the
// whole batch replayable.
func (w *LedgerWriter) Commit(ctx context.Context, batchID string, pending []domain.PendingSale, fold *FoldResult) error {
	seqs := make([]int64, len(pending))
	for i, s := range pending {
		seqs[i] = s.Seq
	}

	err := w.db.WithTx(ctx, func(tx port.LedgerTx) error {
		if err := tx.UpdateInventory(ctx, batchID, fold.Delta); err != nil {
			return err
		}
		if err := tx.AppendProcessedSales(ctx, batchID, fold.Sales); err != nil {
			return err
		}
		if err := tx.AppendSupplierOrders(ctx, batchID, fold.Orders); err != nil {
			return err
		}
		return tx.ClearPendingQueue(ctx, seqs)
	})
	if err != nil {
		return &CommitError{BatchID: batchID, Err: err}
	}
	return nil
}
