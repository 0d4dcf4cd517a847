package port

import (
	"context"
	"errors"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

// ErrNotFound is returned by lookups that find no row.
var ErrNotFound = errors.New("not found")

type DatabaseRepository interface {
	// LoadInventorySnapshot returns every product with its on-hand quantity
	LoadInventorySnapshot(ctx context.Context) ([]domain.InventoryItem, error)

	// LoadPendingSales returns the unprocessed queue ordered by date, hashed email, then row id
	LoadPendingSales(ctx context.Context) ([]domain.PendingSale, error)

	// LookupSupplier returns the supplier of a product, or ErrNotFound
	LookupSupplier(ctx context.Context, productID domain.ProductID) (domain.SupplierID, error)

	// WithTx runs fn in a single store transaction, committing only when fn returns nil
	WithTx(ctx context.Context, fn func(LedgerTx) error) error
}

// LedgerTx is the write side of a batch commit. It is only valid inside WithTx.
type LedgerTx interface {
	// UpdateInventory overwrites quantities for existing products; it never inserts
	UpdateInventory(ctx context.Context, batchID string, delta domain.InventoryDelta) error

	AppendProcessedSales(ctx context.Context, batchID string, sales []domain.ProcessedSale) error

	AppendSupplierOrders(ctx context.Context, batchID string, orders []domain.ResupplyOrder) error

	// ClearPendingQueue removes the reconciled rows from the unprocessed queue
	ClearPendingQueue(ctx context.Context, seqs []int64) error
}
