package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SalesSummary groups settled and credit orders by UTC calendar day and type.
func (r *ReportRepository) SalesSummary(ctx context.Context, rng domain.DateRange) ([]domain.SalesSummaryRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, type,
			COUNT(*), SUM(total_amount), SUM(outstanding_amount)
		FROM orders
		WHERE status IN ($1, $2) AND created_at >= $3 AND created_at <= $4
		GROUP BY day, type
		ORDER BY day, type`,
		domain.OrderStatusPaid, domain.OrderStatusOnCredit, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("SalesSummary: %w", err)
	}
	defer rows.Close()

	var out []domain.SalesSummaryRow
	for rows.Next() {
		var s domain.SalesSummaryRow
		if err := rows.Scan(&s.Day, &s.Type, &s.OrderCount, &s.TotalAmount, &s.OutstandingAmount); err != nil {
			return nil, fmt.Errorf("SalesSummary: scan: %w", err)
		}
		s.Day = s.Day.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SalesSummary: rows: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) CreditOutstanding(ctx context.Context, rng domain.DateRange) ([]domain.CreditOutstandingRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, created_at, total_amount, outstanding_amount
		FROM orders
		WHERE status = $1 AND outstanding_amount > 0 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at, id`,
		domain.OrderStatusOnCredit, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("CreditOutstanding: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditOutstandingRow
	for rows.Next() {
		var c domain.CreditOutstandingRow
		if err := rows.Scan(&c.OrderID, &c.Type, &c.CreatedAt, &c.TotalAmount, &c.OutstandingAmount); err != nil {
			return nil, fmt.Errorf("CreditOutstanding: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CreditOutstanding: rows: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) CreditPayments(ctx context.Context, rng domain.DateRange) ([]domain.CreditPaymentRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.order_id, o.type, o.status, o.created_at, o.total_amount, p.amount, p.occurred_at
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE p.occurred_at >= $1 AND p.occurred_at <= $2
		ORDER BY p.occurred_at, p.id`,
		rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("CreditPayments: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditPaymentRow
	for rows.Next() {
		var c domain.CreditPaymentRow
		err := rows.Scan(
			&c.PaymentID, &c.OrderID, &c.OrderType, &c.OrderStatus, &c.OrderDate,
			&c.OrderTotal, &c.Amount, &c.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("CreditPayments: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CreditPayments: rows: %w", err)
	}
	return out, nil
}
