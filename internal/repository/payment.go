package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const paymentColumns = `id, order_id, amount, occurred_at, created_at, created_by`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) SumByOrderID(ctx context.Context, orderID domain.EntityID) (domain.Money, error) {
	m, err := sumPayments(ctx, r.db, orderID)
	if err != nil {
		return domain.Money{}, fmt.Errorf("SumByOrderID: %w", err)
	}
	return m, nil
}

// WithinOrder runs fn in one transaction holding the order row with
// SELECT ... FOR UPDATE. The payment sum, any appended payment and the order
// update commit together, so settlements of one order from different
// processes are serialized.
func (r *PaymentRepository) WithinOrder(ctx context.Context, orderID domain.EntityID, fn func(ctx context.Context, ledger domain.CreditLedger) error) error {
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		order, err := loadOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		return fn(ctx, &txCreditLedger{tx: tx, order: order})
	})
	if err != nil {
		return fmt.Errorf("WithinOrder: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, db dbtx, p *domain.Payment) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.OrderID, p.Amount, p.OccurredAt, p.CreatedAt, p.CreatedBy,
	)
	return err
}

func sumPayments(ctx context.Context, db dbtx, orderID domain.EntityID) (domain.Money, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID,
	).Scan(&total)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.NewMoney(total)
}

type txCreditLedger struct {
	tx    *sql.Tx
	order *domain.Order
}

func (l *txCreditLedger) Order() *domain.Order { return l.order }

func (l *txCreditLedger) PaidTotal(ctx context.Context) (domain.Money, error) {
	m, err := sumPayments(ctx, l.tx, l.order.ID())
	if err != nil {
		return domain.Money{}, fmt.Errorf("PaidTotal: %w", err)
	}
	return m, nil
}

func (l *txCreditLedger) AppendPayment(ctx context.Context, p *domain.Payment) error {
	if err := insertPayment(ctx, l.tx, p); err != nil {
		return fmt.Errorf("AppendPayment: %w", err)
	}
	return nil
}

func (l *txCreditLedger) SaveOrder(ctx context.Context, o *domain.Order) error {
	if err := updateOrder(ctx, l.tx, o); err != nil {
		return fmt.Errorf("SaveOrder: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID domain.EntityID) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY occurred_at, created_at`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOrderID: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOrderID: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOrderID: rows: %w", err)
	}
	return payments, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var (
		p      domain.Payment
		amount int64
	)
	err := s.Scan(&p.ID, &p.OrderID, &amount, &p.OccurredAt, &p.CreatedAt, &p.CreatedBy)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = domain.NewMoney(amount); err != nil {
		return nil, err
	}
	return &p, nil
}
