package service

import (
	"slices"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

// ResupplyDispatcher stages resupply orders emitted during a fold. It does no
// I/O: orders are persisted by the LedgerWriter together with the rest of the
// batch. Re-running a batch that was not cleared dispatches the orders again.
type ResupplyDispatcher struct {
	orders []domain.ResupplyOrder
}

func (d *ResupplyDispatcher) Dispatch(order domain.ResupplyOrder) {
	d.orders = append(d.orders, order)
}

// Staged returns the orders in emission order.
func (d *ResupplyDispatcher) Staged() []domain.ResupplyOrder {
	return slices.Clone(d.orders)
}

func (d *ResupplyDispatcher) Len() int {
	return len(d.orders)
}
