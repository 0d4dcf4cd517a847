package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

var fixedNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func newInventory(stock map[domain.ProductID]int) *domain.Inventory {
	items := make([]domain.InventoryItem, 0, len(stock))
	for id, q := range stock {
		items = append(items, domain.InventoryItem{ProductID: id, Quantity: q, SalePrice: decimal.NewFromInt(10)})
	}
	return domain.NewInventory(items)
}

func sale(seq int64, product domain.ProductID, quantity int) domain.PendingSale {
	return domain.PendingSale{
		Seq:          seq,
		DateID:       1,
		CustLocation: "94110",
		ProductID:    product,
		Quantity:     quantity,
		HashedEmail:  "h" + string(rune('a'+seq)),
	}
}

func newEngine(resupply int) *Engine {
	return &Engine{
		ResupplyQuantity: resupply,
		SupplierPolicy:   SupplierPolicyAbort,
		Now:              func() time.Time { return fixedNow },
	}
}

func TestFold_StockoutResetsToResupplyQuantity(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 5, 2: 20})
	sales := []domain.PendingSale{sale(1, 1, 3), sale(2, 1, 4), sale(3, 2, 20)}

	res, err := newEngine(50).Fold(inv, sales, SupplierDirectory{1: 7, 2: 8})
	require.NoError(t, err)

	require.Len(t, res.Sales, 3)
	assert.True(t, res.Sales[0].Fulfilled)
	assert.False(t, res.Sales[1].Fulfilled)
	assert.True(t, res.Sales[2].Fulfilled)

	require.Len(t, res.Orders, 1)
	assert.Equal(t, domain.ResupplyOrder{DateID: 1, SupplierID: 7, ProductID: 1, Quantity: 50}, res.Orders[0])

	assert.Equal(t, domain.InventoryDelta{1: 50, 2: 0}, res.Delta)
	assert.Equal(t, 2, res.Summary.Fulfilled)
	assert.Equal(t, 1, res.Summary.Stockouts)
	assert.Equal(t, 23, res.Summary.UnitsSold)
	assert.True(t, decimal.NewFromInt(230).Equal(res.Summary.FulfilledRevenue))
	assert.True(t, decimal.NewFromInt(40).Equal(res.Summary.LostRevenue))
}

func TestFold_ZeroResupplyQuantityStaysInsufficient(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 5, 2: 20})
	sales := []domain.PendingSale{sale(1, 1, 3), sale(2, 1, 4), sale(3, 2, 20), sale(4, 1, 1)}

	res, err := newEngine(0).Fold(inv, sales, SupplierDirectory{1: 7, 2: 8})
	require.NoError(t, err)

	flags := make([]int, len(res.Sales))
	for i, s := range res.Sales {
		flags[i] = s.FulfillmentFlag()
	}
	assert.Equal(t, []int{1, 0, 1, 0}, flags)
	assert.Len(t, res.Orders, 2)
	assert.Equal(t, domain.InventoryDelta{1: 0, 2: 0}, res.Delta)
}

func TestFold_ExactQuantityIsFulfilled(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 4})

	res, err := newEngine(50).Fold(inv, []domain.PendingSale{sale(1, 1, 4)}, SupplierDirectory{})
	require.NoError(t, err)

	assert.True(t, res.Sales[0].Fulfilled)
	assert.Empty(t, res.Orders)
	assert.Equal(t, domain.InventoryDelta{1: 0}, res.Delta)
}

func TestFold_OneRecordPerSaleInInputOrder(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 3, 2: 1, 3: 9})
	sales := []domain.PendingSale{
		sale(1, 3, 2), sale(2, 1, 5), sale(3, 2, 1), sale(4, 1, 1), sale(5, 3, 8), sale(6, 2, 2),
	}

	res, err := newEngine(4).Fold(inv, sales, SupplierDirectory{1: 1, 2: 1, 3: 1})
	require.NoError(t, err)

	require.Len(t, res.Sales, len(sales))
	for i, s := range sales {
		got := res.Sales[i]
		assert.Equal(t, s.ProductID, got.ProductID, "record %d", i)
		assert.Equal(t, s.Quantity, got.Quantity, "record %d", i)
		assert.Equal(t, s.HashedEmail, got.HashedEmail, "record %d", i)
		assert.Equal(t, s.CustLocation, got.CustLocation, "record %d", i)
		assert.Equal(t, fixedNow, got.ProcessedAt, "record %d", i)
	}
}

func TestFold_QuantityNeverNegative(t *testing.T) {
	stock := map[domain.ProductID]int{1: 7, 2: 0, 3: 2}
	inv := newInventory(stock)
	var sales []domain.PendingSale
	for i := int64(0); i < 60; i++ {
		sales = append(sales, sale(i, domain.ProductID(i%3+1), int(i%5)+1))
	}

	engine := newEngine(3)
	// fold one sale at a time so the invariant is checked after every step
	for i := range sales {
		_, err := engine.Fold(inv, sales[i:i+1], SupplierDirectory{1: 1, 2: 1, 3: 1})
		require.NoError(t, err)
		for id := range stock {
			q, _ := inv.Available(id)
			assert.GreaterOrEqual(t, q, 0, "product %d after sale %d", id, i)
		}
	}
}

func TestFold_FullyFulfillableSubtractsTotal(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 100})
	sales := []domain.PendingSale{sale(1, 1, 10), sale(2, 1, 25), sale(3, 1, 1), sale(4, 1, 64)}

	res, err := newEngine(50).Fold(inv, sales, SupplierDirectory{})
	require.NoError(t, err)

	assert.Empty(t, res.Orders)
	assert.Equal(t, domain.InventoryDelta{1: 0}, res.Delta)
}

func TestFold_DeltaDropsUnchangedProducts(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 5, 2: 8, 3: 50})
	// product 3 stocks out and is reset to its own baseline value
	sales := []domain.PendingSale{sale(1, 1, 2), sale(2, 3, 60)}

	res, err := newEngine(50).Fold(inv, sales, SupplierDirectory{3: 9})
	require.NoError(t, err)

	assert.Equal(t, domain.InventoryDelta{1: 3}, res.Delta)
	assert.Len(t, res.Orders, 1)
}

func TestFold_UnknownProductAbortsBatch(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 5})
	sales := []domain.PendingSale{sale(1, 1, 1), sale(2, 42, 1)}

	res, err := newEngine(50).Fold(inv, sales, SupplierDirectory{})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrUnknownProduct)

	var unknown *UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 1, unknown.Index)
	assert.Equal(t, domain.ProductID(42), unknown.ProductID)
}

func TestFold_MissingSupplierAbortsByDefault(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 0})
	engine := newEngine(50)
	engine.SupplierPolicy = ""

	_, err := engine.Fold(inv, []domain.PendingSale{sale(1, 1, 1)}, SupplierDirectory{})
	require.ErrorIs(t, err, ErrSupplierNotFound)

	var notFound *SupplierNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, domain.ProductID(1), notFound.ProductID)
}

func TestFold_MissingSupplierFlaggedWhenConfigured(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 0})
	engine := newEngine(50)
	engine.SupplierPolicy = SupplierPolicyFlag

	res, err := engine.Fold(inv, []domain.PendingSale{sale(1, 1, 1)}, SupplierDirectory{})
	require.NoError(t, err)

	require.Len(t, res.Orders, 1)
	assert.True(t, res.Orders[0].SupplierUnresolved)
	assert.Zero(t, res.Orders[0].SupplierID)
	assert.Equal(t, 1, res.Summary.UnresolvedSuppliers)
	assert.Equal(t, domain.InventoryDelta{1: 50}, res.Delta)
}

func TestFold_MissingSupplierIgnoredWithoutStockout(t *testing.T) {
	inv := newInventory(map[domain.ProductID]int{1: 5})

	res, err := newEngine(50).Fold(inv, []domain.PendingSale{sale(1, 1, 5)}, SupplierDirectory{})
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
}

func TestFold_SupplierLookupErrorOnlyFailsStockout(t *testing.T) {
	engine := newEngine(50)
	engine.SupplierErrors = map[domain.ProductID]error{1: errors.New("connection reset")}

	res, err := engine.Fold(newInventory(map[domain.ProductID]int{1: 5}), []domain.PendingSale{sale(1, 1, 5)}, SupplierDirectory{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Fulfilled)

	_, err = engine.Fold(newInventory(map[domain.ProductID]int{1: 5}), []domain.PendingSale{sale(1, 1, 6)}, SupplierDirectory{})
	require.ErrorIs(t, err, ErrStoreRead)
	assert.NotErrorIs(t, err, ErrSupplierNotFound)
}

func TestParseSupplierPolicy(t *testing.T) {
	p, err := ParseSupplierPolicy("flag")
	require.NoError(t, err)
	assert.Equal(t, SupplierPolicyFlag, p)

	_, err = ParseSupplierPolicy("default")
	assert.Error(t, err)
}

func TestResupplyDispatcher_KeepsEmissionOrder(t *testing.T) {
	var d ResupplyDispatcher
	d.Dispatch(domain.ResupplyOrder{ProductID: 2})
	d.Dispatch(domain.ResupplyOrder{ProductID: 1})
	d.Dispatch(domain.ResupplyOrder{ProductID: 2})

	staged := d.Staged()
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []domain.ProductID{2, 1, 2}, []domain.ProductID{staged[0].ProductID, staged[1].ProductID, staged[2].ProductID})

	staged[0].Quantity = 99
	assert.Zero(t, d.Staged()[0].Quantity)
}
