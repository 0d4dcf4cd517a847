package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

type SupplierPolicy string

const (
	// SupplierPolicyAbort fails the batch when a stocked-out product has no supplier.
	SupplierPolicyAbort SupplierPolicy = "abort"
	// SupplierPolicyFlag dispatches the order marked unresolved and keeps going.
	SupplierPolicyFlag SupplierPolicy = "flag"
)

func ParseSupplierPolicy(s string) (SupplierPolicy, error) {
	switch p := SupplierPolicy(s); p {
	case SupplierPolicyAbort, SupplierPolicyFlag:
		return p, nil
	}
	return "", fmt.Errorf("unknown supplier policy %q", s)
}

// SupplierDirectory maps products to suppliers. A missing entry means the
// supplier could not be resolved.
type SupplierDirectory map[domain.ProductID]domain.SupplierID

// Engine folds a batch of pending sales over the inventory model. It performs
// no I/O; everything it needs is loaded before Fold is called.
type Engine struct {
	ResupplyQuantity int
	SupplierPolicy   SupplierPolicy
	// SupplierErrors holds failed supplier lookups; one fails the fold only
	// when its product stocks out.
	SupplierErrors map[domain.ProductID]error
	Now            func() time.Time
}

type FoldResult struct {
	Sales   []domain.ProcessedSale
	Orders  []domain.ResupplyOrder
	Delta   domain.InventoryDelta
	Summary domain.BatchSummary
}

// Fold applies sales in order. A sale is fulfilled when the requested quantity
// is at most the working quantity; otherwise it is recorded unfulfilled, a
// resupply order is dispatched, and the product's working quantity is reset
// (not incremented) to ResupplyQuantity for the rest of the batch.
func (e *Engine) Fold(inv *domain.Inventory, sales []domain.PendingSale, suppliers SupplierDirectory) (*FoldResult, error) {
	now := e.Now
	if now == nil {
		now = time.Now
	}

	var dispatcher ResupplyDispatcher
	processed := make([]domain.ProcessedSale, 0, len(sales))
	summary := domain.BatchSummary{
		Transactions:     len(sales),
		FulfilledRevenue: decimal.Zero,
		LostRevenue:      decimal.Zero,
	}

	for i, sale := range sales {
		available, ok := inv.Available(sale.ProductID)
		if !ok {
			return nil, &UnknownProductError{Index: i, ProductID: sale.ProductID}
		}

		value := inv.Price(sale.ProductID).Mul(decimal.NewFromInt(int64(sale.Quantity)))
		fulfilled := sale.Quantity <= available

		if fulfilled {
			inv.Set(sale.ProductID, available-sale.Quantity)
			summary.Fulfilled++
			summary.UnitsSold += sale.Quantity
			summary.FulfilledRevenue = summary.FulfilledRevenue.Add(value)
		} else {
			order, err := e.resupply(sale, suppliers)
			if err != nil {
				return nil, err
			}
			if order.SupplierUnresolved {
				summary.UnresolvedSuppliers++
			}
			dispatcher.Dispatch(order)
			inv.Set(sale.ProductID, e.ResupplyQuantity)
			summary.Stockouts++
			summary.LostRevenue = summary.LostRevenue.Add(value)
		}

		processed = append(processed, domain.ProcessedSale{
			DateID:       sale.DateID,
			ProcessedAt:  now(),
			CustLocation: sale.CustLocation,
			ProductID:    sale.ProductID,
			Quantity:     sale.Quantity,
			Fulfilled:    fulfilled,
			HashedEmail:  sale.HashedEmail,
		})
	}

	return &FoldResult{
		Sales:   processed,
		Orders:  dispatcher.Staged(),
		Delta:   inv.Delta(),
		Summary: summary,
	}, nil
}

func (e *Engine) resupply(sale domain.PendingSale, suppliers SupplierDirectory) (domain.ResupplyOrder, error) {
	order := domain.ResupplyOrder{
		DateID:    sale.DateID,
		ProductID: sale.ProductID,
		Quantity:  e.ResupplyQuantity,
	}

	if err, failed := e.SupplierErrors[sale.ProductID]; failed {
		return domain.ResupplyOrder{}, fmt.Errorf("%w: lookup supplier for product %d: %w", ErrStoreRead, sale.ProductID, err)
	}

	supplierID, ok := suppliers[sale.ProductID]
	if ok {
		order.SupplierID = supplierID
		return order, nil
	}

	if e.SupplierPolicy == SupplierPolicyFlag {
		order.SupplierUnresolved = true
		return order, nil
	}
	return domain.ResupplyOrder{}, &SupplierNotFoundError{ProductID: sale.ProductID}
}
