package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

const (
	stockKeyPrefix    = "stock:"
	supplierKeyPrefix = "supplier:"
	batchLockKey      = "reconcile:lock"
	supplierKeyTTL    = 24 * time.Hour
)

// releaseLockScript deletes the lock only when it still holds the caller's token,
// so a run whose lock expired cannot release a successor's lock.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) AcquireBatchLock(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, batchLockKey, token, ttl).Result()
}

func (r *RedisAdapter) ReleaseBatchLock(ctx context.Context, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{batchLockKey}, token).Err()
}

func (r *RedisAdapter) GetSupplier(ctx context.Context, productID domain.ProductID) (domain.SupplierID, bool, error) {
	id, err := r.client.Get(ctx, supplierKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return domain.SupplierID(id), true, nil
}

func (r *RedisAdapter) SetSupplier(ctx context.Context, productID domain.ProductID, supplierID domain.SupplierID) error {
	return r.client.Set(ctx, supplierKey(productID), int64(supplierID), supplierKeyTTL).Err()
}

func (r *RedisAdapter) MirrorStock(ctx context.Context, delta domain.InventoryDelta) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, quantity := range delta {
			pipe.Set(ctx, stockKey(id), quantity, 0)
		}
		return nil
	})
	return err
}

// Stock reads a mirrored quantity.
func (r *RedisAdapter) Stock(ctx context.Context, productID domain.ProductID) (int, error) {
	return r.client.Get(ctx, stockKey(productID)).Int()
}

func stockKey(id domain.ProductID) string {
	return stockKeyPrefix + strconv.FormatInt(int64(id), 10)
}

func supplierKey(id domain.ProductID) string {
	return supplierKeyPrefix + strconv.FormatInt(int64(id), 10)
}
