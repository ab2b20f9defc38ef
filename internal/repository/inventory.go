package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const inventoryColumns = `product_id, quantity, updated_at`

const movementColumns = `id, product_id, type, quantity, reason, reference_id, occurred_at`

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// WithinProduct runs fn in one transaction that holds a transaction-scoped
// advisory lock on productID. Concurrent scopes on the same product queue
// behind it, including the first increase of a product that has no row yet.
func (r *InventoryRepository) WithinProduct(ctx context.Context, productID domain.EntityID, fn func(ctx context.Context, ledger domain.StockLedger) error) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, productID,
		); err != nil {
			return fmt.Errorf("WithinProduct: lock %s: %w", productID, err)
		}
		return fn(ctx, &txLedger{tx: tx, productID: productID})
	})
}

func (r *InventoryRepository) GetByProductID(ctx context.Context, productID domain.EntityID) (*domain.InventoryItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE product_id = $1`, productID,
	)
	item, err := scanInventoryItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByProductID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByProductID: %w", err)
	}
	return item, nil
}

func (r *InventoryRepository) ListLowStock(ctx context.Context, threshold int64) ([]domain.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items
		WHERE quantity <= $1 ORDER BY quantity, product_id`, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("ListLowStock: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListLowStock: scan: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLowStock: rows: %w", err)
	}
	return items, nil
}

func (r *InventoryRepository) ListMovements(ctx context.Context, f domain.MovementFilter) ([]domain.StockMovement, error) {
	var (
		conds []string
		args  []any
	)
	if f.ProductID != nil {
		args = append(args, *f.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	query := `SELECT ` + movementColumns + ` FROM stock_movements`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY occurred_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMovements: %w", err)
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMovements: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMovements: rows: %w", err)
	}
	return movements, nil
}

type txLedger struct {
	tx        *sql.Tx
	productID domain.EntityID
}

func (l *txLedger) Find(ctx context.Context) (*domain.InventoryItem, error) {
	row := l.tx.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE product_id = $1 FOR UPDATE`, l.productID,
	)
	item, err := scanInventoryItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Find: %s: %w", l.productID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Find: %w", err)
	}
	return item, nil
}

func (l *txLedger) Increase(ctx context.Context, q domain.Quantity) (*domain.InventoryItem, error) {
	row := l.tx.QueryRowContext(ctx,
		`INSERT INTO inventory_items (product_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id) DO UPDATE
		SET quantity = inventory_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING `+inventoryColumns,
		l.productID, q,
	)
	item, err := scanInventoryItem(row)
	if err != nil {
		return nil, fmt.Errorf("Increase: %w", err)
	}
	return item, nil
}

// Decrease only touches the row when enough stock is on hand, so the
// quantity check and the write are one statement.
func (l *txLedger) Decrease(ctx context.Context, q domain.Quantity) (*domain.InventoryItem, error) {
	row := l.tx.QueryRowContext(ctx,
		`UPDATE inventory_items SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND quantity >= $2
		RETURNING `+inventoryColumns,
		l.productID, q,
	)
	item, err := scanInventoryItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Decrease: %w", err)
	}

	if _, err := l.Find(ctx); err != nil {
		return nil, fmt.Errorf("Decrease: %w", err)
	}
	return nil, fmt.Errorf("Decrease: %w", &domain.InsufficientStockError{ProductID: l.productID})
}

func (l *txLedger) RecordMovement(ctx context.Context, m domain.StockMovement) error {
	_, err := l.tx.ExecContext(ctx,
		`INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ProductID, m.Type, m.Quantity, m.Reason, m.ReferenceID, m.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("RecordMovement: %w", err)
	}
	return nil
}

func scanInventoryItem(s scanner) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := s.Scan(&item.ProductID, &item.Quantity, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanMovement(s scanner) (*domain.StockMovement, error) {
	var (
		m   domain.StockMovement
		qty int64
	)
	err := s.Scan(&m.ID, &m.ProductID, &m.Type, &qty, &m.Reason, &m.ReferenceID, &m.OccurredAt)
	if err != nil {
		return nil, err
	}
	m.Quantity, err = domain.NewQuantity(qty)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
