package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestBatchLock_SingleHolder(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, batchLockKey)

	ok, err := adapter.AcquireBatchLock(ctx, "run-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = adapter.AcquireBatchLock(ctx, "run-2", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second acquire to fail while lock is held")
	}

	// a stale token must not release someone else's lock
	if err := adapter.ReleaseBatchLock(ctx, "run-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner, _ := client.Get(ctx, batchLockKey).Result(); owner != "run-1" {
		t.Errorf("expected lock owner run-1, got %q", owner)
	}

	if err := adapter.ReleaseBatchLock(ctx, "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := client.Exists(ctx, batchLockKey).Result(); n != 0 {
		t.Error("expected lock to be released")
	}
}

func TestBatchLock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, batchLockKey)
	defer client.Del(ctx, batchLockKey)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ok, err := adapter.AcquireBatchLock(ctx, "run-"+string(rune('A'+id)), time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 holder, got %d", successCount.Load())
	}
}

func TestSupplierCache(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, supplierKey(501))

	_, ok, err := adapter.GetSupplier(ctx, 501)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}

	if err := adapter.SetSupplier(ctx, 501, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, ok, err := adapter.GetSupplier(ctx, 501)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if id != 12 {
		t.Errorf("expected supplier 12, got %d", id)
	}
}

func TestMirrorStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	err := adapter.MirrorStock(ctx, domain.InventoryDelta{601: 50, 602: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stock, _ := adapter.Stock(ctx, 601); stock != 50 {
		t.Errorf("expected stock 50, got %d", stock)
	}
	if stock, _ := adapter.Stock(ctx, 602); stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}
