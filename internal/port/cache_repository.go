package port

import (
	"context"
	"time"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

type CacheRepository interface {
	// AcquireBatchLock takes the single-runner lock, returns false if another run holds it
	AcquireBatchLock(ctx context.Context, token string, ttl time.Duration) (bool, error)

	// ReleaseBatchLock drops the lock only if it is still held by token
	ReleaseBatchLock(ctx context.Context, token string) error

	// GetSupplier returns a cached supplier; ok is false on a miss
	GetSupplier(ctx context.Context, productID domain.ProductID) (domain.SupplierID, bool, error)

	SetSupplier(ctx context.Context, productID domain.ProductID, supplierID domain.SupplierID) error

	// MirrorStock publishes committed quantities for storefront reads
	MirrorStock(ctx context.Context, delta domain.InventoryDelta) error
}
