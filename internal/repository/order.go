package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const orderColumns = `id, type, status, total_amount, outstanding_amount,
	created_at, created_by, version`

const orderItemColumns = `id, product_id, product_name, unit, unit_price, quantity, subtotal`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	s := o.Snapshot()
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.ID, s.Type, s.Status, s.TotalAmount, s.OutstandingAmount,
			s.CreatedAt, s.CreatedBy, s.Version,
		); err != nil {
			return err
		}

		for i, item := range s.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, position, `+orderItemColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				s.ID, i, item.ID, item.ProductID, item.ProductNameSnapshot, item.UnitSnapshot,
				item.UnitPriceSnapshot, item.Quantity, item.Subtotal,
			); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateOrder)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Update persists status and outstanding amount. It fails with
// ErrVersionConflict when the row changed since o was loaded.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	if err := updateOrder(ctx, r.db, o); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func updateOrder(ctx context.Context, db dbtx, o *domain.Order) error {
	res, err := db.ExecContext(ctx,
		`UPDATE orders SET status = $1, outstanding_amount = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4`,
		o.Status(), o.OutstandingAmount(), o.ID(), o.Version(),
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order %s at version %d: %w", o.ID(), o.Version(), domain.ErrVersionConflict)
	}
	o.SetVersion(o.Version() + 1)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id domain.EntityID) (*domain.Order, error) {
	o, err := loadOrder(ctx, r.db, id, false)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

// loadOrder reads an order and its items. forUpdate locks the order row
// until db, which must then be a transaction, ends.
func loadOrder(ctx context.Context, db dbtx, id domain.EntityID, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanOrderSnapshot(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	s.Items, err = orderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return domain.RestoreOrder(*s)
}

func orderItems(ctx context.Context, db dbtx, orderID domain.EntityID) ([]domain.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY position`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("orderItems: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("orderItems: scan: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orderItems: rows: %w", err)
	}
	return items, nil
}

func scanOrderSnapshot(s scanner) (*domain.OrderSnapshot, error) {
	var (
		o                  domain.OrderSnapshot
		total, outstanding int64
	)
	err := s.Scan(
		&o.ID, &o.Type, &o.Status, &total, &outstanding,
		&o.CreatedAt, &o.CreatedBy, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	if o.TotalAmount, err = domain.NewMoney(total); err != nil {
		return nil, err
	}
	if o.OutstandingAmount, err = domain.NewMoney(outstanding); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrderItem(s scanner) (*domain.OrderItem, error) {
	var (
		item                 domain.OrderItem
		price, qty, subtotal int64
	)
	err := s.Scan(
		&item.ID, &item.ProductID, &item.ProductNameSnapshot, &item.UnitSnapshot,
		&price, &qty, &subtotal,
	)
	if err != nil {
		return nil, err
	}
	if item.UnitPriceSnapshot, err = domain.NewMoney(price); err != nil {
		return nil, err
	}
	if item.Quantity, err = domain.NewQuantity(qty); err != nil {
		return nil, err
	}
	if item.Subtotal, err = domain.NewMoney(subtotal); err != nil {
		return nil, err
	}
	return &item, nil
}
