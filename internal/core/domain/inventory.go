package domain

import (
	"maps"

	"github.com/shopspring/decimal"
)

type ProductID int64

type SupplierID int64

type InventoryItem struct {
	ProductID ProductID
	Quantity  int
	SalePrice decimal.Decimal
}

// InventoryDelta holds only the products whose quantity changed during a batch.
type InventoryDelta map[ProductID]int

// Inventory is the in-memory stock model for one batch. The baseline is the
// snapshot taken at batch start and is never written; all decisions mutate the
// working copy.
type Inventory struct {
	baseline map[ProductID]int
	working  map[ProductID]int
	prices   map[ProductID]decimal.Decimal
}

func NewInventory(items []InventoryItem) *Inventory {
	inv := &Inventory{
		baseline: make(map[ProductID]int, len(items)),
		prices:   make(map[ProductID]decimal.Decimal, len(items)),
	}
	for _, item := range items {
		inv.baseline[item.ProductID] = item.Quantity
		inv.prices[item.ProductID] = item.SalePrice
	}
	inv.working = maps.Clone(inv.baseline)
	return inv
}

// Available returns the working quantity; ok is false for unknown products.
func (inv *Inventory) Available(id ProductID) (int, bool) {
	q, ok := inv.working[id]
	return q, ok
}

func (inv *Inventory) Set(id ProductID, quantity int) {
	inv.working[id] = quantity
}

func (inv *Inventory) Baseline(id ProductID) (int, bool) {
	q, ok := inv.baseline[id]
	return q, ok
}

func (inv *Inventory) Price(id ProductID) decimal.Decimal {
	return inv.prices[id]
}

func (inv *Inventory) Len() int {
	return len(inv.working)
}

// Delta compares working against baseline after the fold.
func (inv *Inventory) Delta() InventoryDelta {
	delta := make(InventoryDelta)
	for id, q := range inv.working {
		if base, ok := inv.baseline[id]; ok && base == q {
			continue
		}
		delta[id] = q
	}
	return delta
}
