package storage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/port"
)

// MemoryAdapter is an in-process Data Store for tests and dry runs.
// WithTx snapshots every table and restores it if fn fails.
type MemoryAdapter struct {
	mu        sync.Mutex
	inventory map[domain.ProductID]domain.InventoryItem
	suppliers map[domain.ProductID]domain.SupplierID
	pending   []domain.PendingSale
	processed []domain.ProcessedSale
	orders    []domain.ResupplyOrder
	nextSeq   int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		inventory: make(map[domain.ProductID]domain.InventoryItem),
		suppliers: make(map[domain.ProductID]domain.SupplierID),
	}
}

// AddProduct registers a product with its stock and supplier. A zero supplier
// leaves the product without one.
func (m *MemoryAdapter) AddProduct(item domain.InventoryItem, supplierID domain.SupplierID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[item.ProductID] = item
	if supplierID != 0 {
		m.suppliers[item.ProductID] = supplierID
	}
}

// Enqueue appends a pending sale and assigns its Seq.
func (m *MemoryAdapter) Enqueue(sale domain.PendingSale) domain.PendingSale {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	sale.Seq = m.nextSeq
	m.pending = append(m.pending, sale)
	return sale
}

func (m *MemoryAdapter) LoadInventorySnapshot(_ context.Context) ([]domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := slices.Collect(maps.Values(m.inventory))
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return items, nil
}

func (m *MemoryAdapter) LoadPendingSales(_ context.Context) ([]domain.PendingSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sales := slices.Clone(m.pending)
	slices.SortStableFunc(sales, func(a, b domain.PendingSale) int {
		return cmp.Or(
			cmp.Compare(a.DateID, b.DateID),
			cmp.Compare(a.HashedEmail, b.HashedEmail),
			cmp.Compare(a.Seq, b.Seq),
		)
	})
	return sales, nil
}

func (m *MemoryAdapter) LookupSupplier(_ context.Context, productID domain.ProductID) (domain.SupplierID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.suppliers[productID]
	if !ok {
		return 0, port.ErrNotFound
	}
	return id, nil
}

func (m *MemoryAdapter) WithTx(ctx context.Context, fn func(port.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memoryLedgerTx{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Quantity returns the stored on-hand quantity of a product.
func (m *MemoryAdapter) Quantity(id domain.ProductID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.inventory[id]
	return item.Quantity, ok
}

func (m *MemoryAdapter) Pending() []domain.PendingSale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending)
}

func (m *MemoryAdapter) ProcessedSales() []domain.ProcessedSale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.processed)
}

func (m *MemoryAdapter) SupplierOrders() []domain.ResupplyOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders)
}

type memorySnapshot struct {
	inventory map[domain.ProductID]domain.InventoryItem
	pending   []domain.PendingSale
	processed []domain.ProcessedSale
	orders    []domain.ResupplyOrder
}

func (m *MemoryAdapter) snapshot() memorySnapshot {
	return memorySnapshot{
		inventory: maps.Clone(m.inventory),
		pending:   slices.Clone(m.pending),
		processed: slices.Clone(m.processed),
		orders:    slices.Clone(m.orders),
	}
}

func (m *MemoryAdapter) restore(s memorySnapshot) {
	m.inventory = s.inventory
	m.pending = s.pending
	m.processed = s.processed
	m.orders = s.orders
}

// memoryLedgerTx writes straight into the parent; the caller holds parent.mu.
type memoryLedgerTx struct {
	parent *MemoryAdapter
}

func (t *memoryLedgerTx) UpdateInventory(_ context.Context, _ string, delta domain.InventoryDelta) error {
	for id, quantity := range delta {
		item, ok := t.parent.inventory[id]
		if !ok {
			return fmt.Errorf("%w: product %d", ErrInventoryNotFound, id)
		}
		item.Quantity = quantity
		t.parent.inventory[id] = item
	}
	return nil
}

func (t *memoryLedgerTx) AppendProcessedSales(_ context.Context, _ string, sales []domain.ProcessedSale) error {
	t.parent.processed = append(t.parent.processed, sales...)
	return nil
}

func (t *memoryLedgerTx) AppendSupplierOrders(_ context.Context, _ string, orders []domain.ResupplyOrder) error {
	t.parent.orders = append(t.parent.orders, orders...)
	return nil
}

func (t *memoryLedgerTx) ClearPendingQueue(_ context.Context, seqs []int64) error {
	for _, seq := range seqs {
		if !slices.ContainsFunc(t.parent.pending, func(s domain.PendingSale) bool { return s.Seq == seq }) {
			return fmt.Errorf("%w: sale %d", ErrPendingSaleNotFound, seq)
		}
	}
	t.parent.pending = slices.DeleteFunc(t.parent.pending, func(s domain.PendingSale) bool {
		return slices.Contains(seqs, s.Seq)
	})
	return nil
}
