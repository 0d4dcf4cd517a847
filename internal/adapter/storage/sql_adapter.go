package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/port"
)

var (
	ErrInventoryNotFound   = errors.New("inventory row not found")
	ErrPendingSaleNotFound = errors.New("pending sale already cleared")
)

// SQLAdapter is the Data Store over database/sql. Every statement uses '?'
// placeholders, so the same adapter serves MySQL and SQLite.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (a *SQLAdapter) LoadInventorySnapshot(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT product_tid, quantity, sale_price FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var (
			item  domain.InventoryItem
			price decimal.NullDecimal
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		item.SalePrice = decimal.Zero
		if price.Valid {
			item.SalePrice = price.Decimal
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

func (a *SQLAdapter) LoadPendingSales(ctx context.Context) ([]domain.PendingSale, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, date_id, cust_location, product_tid, quantity, hashed_email
		FROM unprocessed_sales
		ORDER BY date_id, hashed_email, id`)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.PendingSale
	for rows.Next() {
		var s domain.PendingSale
		if err := rows.Scan(&s.Seq, &s.DateID, &s.CustLocation, &s.ProductID, &s.Quantity, &s.HashedEmail); err != nil {
			return nil, fmt.Errorf("scan unprocessed sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unprocessed sales: %w", err)
	}
	return sales, nil
}

func (a *SQLAdapter) LookupSupplier(ctx context.Context, productID domain.ProductID) (domain.SupplierID, error) {
	var supplierID sql.NullInt64
	err := a.db.QueryRowContext(ctx, `
		SELECT supplier_tid FROM dim_product WHERE product_tid = ?`, productID,
	).Scan(&supplierID)

	if errors.Is(err, sql.ErrNoRows) || (err == nil && !supplierID.Valid) {
		return 0, port.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query supplier: %w", err)
	}
	return domain.SupplierID(supplierID.Int64), nil
}

func (a *SQLAdapter) WithTx(ctx context.Context, fn func(port.LedgerTx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlLedgerTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlLedgerTx struct {
	tx *sql.Tx
}

func (l *sqlLedgerTx) UpdateInventory(ctx context.Context, _ string, delta domain.InventoryDelta) error {
	if len(delta) == 0 {
		return nil
	}

	stmt, err := l.tx.PrepareContext(ctx, `UPDATE inventory SET quantity = ? WHERE product_tid = ?`)
	if err != nil {
		return fmt.Errorf("prepare inventory update: %w", err)
	}
	defer stmt.Close()

	// fixed row order keeps lock acquisition consistent across runs
	ids := make([]domain.ProductID, 0, len(delta))
	for id := range delta {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		result, err := stmt.ExecContext(ctx, delta[id], id)
		if err != nil {
			return fmt.Errorf("update inventory %d: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w: product %d", ErrInventoryNotFound, id)
		}
	}
	return nil
}

func (l *sqlLedgerTx) AppendProcessedSales(ctx context.Context, batchID string, sales []domain.ProcessedSale) error {
	if len(sales) == 0 {
		return nil
	}

	stmt, err := l.tx.PrepareContext(ctx, `
		INSERT INTO processed_sales
			(date_id, processed_dt, cust_location, product_tid, quantity, result, hashed_email, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare processed sales insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sales {
		_, err := stmt.ExecContext(ctx,
			s.DateID, s.ProcessedAt.UTC(), s.CustLocation, s.ProductID,
			s.Quantity, s.FulfillmentFlag(), s.HashedEmail, batchID,
		)
		if err != nil {
			return fmt.Errorf("insert processed sale: %w", err)
		}
	}
	return nil
}

func (l *sqlLedgerTx) AppendSupplierOrders(ctx context.Context, batchID string, orders []domain.ResupplyOrder) error {
	if len(orders) == 0 {
		return nil
	}

	stmt, err := l.tx.PrepareContext(ctx, `
		INSERT INTO supplier_orders (date_id, supplier_tid, product_tid, quantity, batch_id)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare supplier orders insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		// unresolved suppliers are stored as NULL for manual follow-up
		supplier := sql.NullInt64{Int64: int64(o.SupplierID), Valid: !o.SupplierUnresolved}
		if _, err := stmt.ExecContext(ctx, o.DateID, supplier, o.ProductID, o.Quantity, batchID); err != nil {
			return fmt.Errorf("insert supplier order: %w", err)
		}
	}
	return nil
}

func (l *sqlLedgerTx) ClearPendingQueue(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}

	stmt, err := l.tx.PrepareContext(ctx, `DELETE FROM unprocessed_sales WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare queue clear: %w", err)
	}
	defer stmt.Close()

	// a row another batch already cleared means that batch committed these sales
	for _, seq := range seqs {
		result, err := stmt.ExecContext(ctx, seq)
		if err != nil {
			return fmt.Errorf("delete unprocessed sale %d: %w", seq, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete unprocessed sale %d: %w", seq, err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: sale %d", ErrPendingSaleNotFound, seq)
		}
	}
	return nil
}
