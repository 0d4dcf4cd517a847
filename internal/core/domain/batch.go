package domain

import "github.com/shopspring/decimal"

type BatchResult struct {
	BatchID string
	Sales   []ProcessedSale
	Orders  []ResupplyOrder
	Delta   InventoryDelta
	Summary BatchSummary
}

type BatchSummary struct {
	Transactions        int
	Fulfilled           int
	Stockouts           int
	UnitsSold           int
	FulfilledRevenue    decimal.Decimal
	LostRevenue         decimal.Decimal
	UnresolvedSuppliers int
}

// Empty reports whether the batch had nothing to reconcile.
func (r *BatchResult) Empty() bool {
	return r.Summary.Transactions == 0
}
