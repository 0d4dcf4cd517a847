package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/port"
)

// LoadPendingSales reads the unprocessed queue. Later decisions depend on
// earlier ones for the same product, so the order is re-asserted here rather
// than trusted to the store.
func LoadPendingSales(ctx context.Context, repo port.DatabaseRepository) ([]domain.PendingSale, error) {
	sales, err := repo.LoadPendingSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load pending sales: %w", ErrStoreRead, err)
	}

	for _, s := range sales {
		if s.Quantity <= 0 {
			return nil, &InvalidSaleError{Seq: s.Seq, Quantity: s.Quantity}
		}
	}

	slices.SortStableFunc(sales, compareSales)
	return sales, nil
}

func compareSales(a, b domain.PendingSale) int {
	return cmp.Or(
		cmp.Compare(a.DateID, b.DateID),
		cmp.Compare(a.HashedEmail, b.HashedEmail),
		cmp.Compare(a.Seq, b.Seq),
	)
}

// LoadInventory takes the batch-start snapshot.
func LoadInventory(ctx context.Context, repo port.DatabaseRepository) (*domain.Inventory, error) {
	items, err := repo.LoadInventorySnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load inventory: %w", ErrStoreRead, err)
	}

	for _, item := range items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: product %d has negative quantity %d", ErrStoreRead, item.ProductID, item.Quantity)
		}
	}

	return domain.NewInventory(items), nil
}
