package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type salesReader interface {
	SalesSummary(ctx context.Context, rng domain.DateRange) ([]domain.SalesSummaryRow, error)
	CreditOutstanding(ctx context.Context, rng domain.DateRange) ([]domain.CreditOutstandingRow, error)
	CreditPayments(ctx context.Context, rng domain.DateRange) ([]domain.CreditPaymentRow, error)
}

type stockReader interface {
	ListLowStock(ctx context.Context, threshold int64) ([]domain.InventoryItem, error)
	ListMovements(ctx context.Context, f domain.MovementFilter) ([]domain.StockMovement, error)
}

type Service struct {
	sales salesReader
	stock stockReader
}

func NewService(sales salesReader, stock stockReader) *Service {
	return &Service{sales: sales, stock: stock}
}

type SalesSummaryLine struct {
	Day               string           `json:"day"`
	OrderType         domain.OrderType `json:"order_type"`
	OrderCount        int64            `json:"order_count"`
	TotalAmount       int64            `json:"total_amount"`
	OutstandingAmount int64            `json:"outstanding_amount"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
}

type SalesSummary struct {
	Lines       []SalesSummaryLine `json:"lines"`
	TotalAmount int64              `json:"total_amount"`
	OrderCount  int64              `json:"order_count"`
}

func (s *Service) SalesSummary(ctx context.Context, rng domain.DateRange) (*SalesSummary, error) {
	if err := validateRange(rng); err != nil {
		return nil, fmt.Errorf("SalesSummary: %w", err)
	}
	rows, err := s.sales.SalesSummary(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("SalesSummary: %w", err)
	}

	out := &SalesSummary{Lines: make([]SalesSummaryLine, 0, len(rows))}
	for _, r := range rows {
		out.Lines = append(out.Lines, SalesSummaryLine{
			Day:               r.Day.Format(time.DateOnly),
			OrderType:         r.Type,
			OrderCount:        r.OrderCount,
			TotalAmount:       r.TotalAmount,
			OutstandingAmount: r.OutstandingAmount,
			AverageOrderValue: ratio(r.TotalAmount, r.OrderCount),
		})
		out.TotalAmount += r.TotalAmount
		out.OrderCount += r.OrderCount
	}
	return out, nil
}

type CreditOutstandingLine struct {
	OrderID           domain.EntityID  `json:"order_id"`
	OrderType         domain.OrderType `json:"order_type"`
	OrderDate         time.Time        `json:"order_date"`
	TotalAmount       int64            `json:"total_amount"`
	OutstandingAmount int64            `json:"outstanding_amount"`
	PaidRatio         decimal.Decimal  `json:"paid_ratio"`
}

type CreditOutstanding struct {
	Lines                  []CreditOutstandingLine `json:"lines"`
	TotalOutstandingAmount int64                   `json:"total_outstanding_amount"`
	TotalCreditOrders      int                     `json:"total_credit_orders"`
}

func (s *Service) CreditOutstanding(ctx context.Context, rng domain.DateRange) (*CreditOutstanding, error) {
	if err := validateRange(rng); err != nil {
		return nil, fmt.Errorf("CreditOutstanding: %w", err)
	}
	rows, err := s.sales.CreditOutstanding(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("CreditOutstanding: %w", err)
	}

	out := &CreditOutstanding{Lines: make([]CreditOutstandingLine, 0, len(rows))}
	for _, r := range rows {
		out.Lines = append(out.Lines, CreditOutstandingLine{
			OrderID:           r.OrderID,
			OrderType:         r.Type,
			OrderDate:         r.CreatedAt,
			TotalAmount:       r.TotalAmount,
			OutstandingAmount: r.OutstandingAmount,
			PaidRatio:         ratio(r.TotalAmount-r.OutstandingAmount, r.TotalAmount),
		})
		out.TotalOutstandingAmount += r.OutstandingAmount
	}
	out.TotalCreditOrders = len(rows)
	return out, nil
}

type CreditPaymentLine struct {
	PaymentID   string             `json:"payment_id"`
	OrderID     domain.EntityID    `json:"order_id"`
	OrderType   domain.OrderType   `json:"order_type"`
	OrderStatus domain.OrderStatus `json:"order_status"`
	OrderDate   time.Time          `json:"order_date"`
	OrderTotal  int64              `json:"order_total"`
	PaidAmount  int64              `json:"paid_amount"`
	PaymentDate time.Time          `json:"payment_date"`
}

type CreditPayments struct {
	Lines           []CreditPaymentLine `json:"lines"`
	TotalPaidAmount int64               `json:"total_paid_amount"`
	TotalOrders     int                 `json:"total_orders"`
}

func (s *Service) CreditPayments(ctx context.Context, rng domain.DateRange) (*CreditPayments, error) {
	if err := validateRange(rng); err != nil {
		return nil, fmt.Errorf("CreditPayments: %w", err)
	}
	rows, err := s.sales.CreditPayments(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("CreditPayments: %w", err)
	}

	out := &CreditPayments{Lines: make([]CreditPaymentLine, 0, len(rows))}
	orders := make(map[domain.EntityID]struct{})
	for _, r := range rows {
		out.Lines = append(out.Lines, CreditPaymentLine{
			PaymentID:   r.PaymentID,
			OrderID:     r.OrderID,
			OrderType:   r.OrderType,
			OrderStatus: r.OrderStatus,
			OrderDate:   r.OrderDate,
			OrderTotal:  r.OrderTotal,
			PaidAmount:  r.Amount,
			PaymentDate: r.OccurredAt,
		})
		out.TotalPaidAmount += r.Amount
		orders[r.OrderID] = struct{}{}
	}
	out.TotalOrders = len(orders)
	return out, nil
}

// LowStock lists items at or below threshold, lowest first. A negative
// threshold matches nothing.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]domain.InventoryItem, error) {
	if threshold < 0 {
		return []domain.InventoryItem{}, nil
	}
	items, err := s.stock.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("LowStock: %w", err)
	}
	return items, nil
}

func (s *Service) StockMovements(ctx context.Context, f domain.MovementFilter) ([]domain.StockMovement, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, fmt.Errorf("StockMovements: from after to: %w", domain.ErrInvalidRequest)
	}
	movements, err := s.stock.ListMovements(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("StockMovements: %w", err)
	}
	return movements, nil
}

func validateRange(rng domain.DateRange) error {
	if rng.From.IsZero() || rng.To.IsZero() || rng.From.After(rng.To) {
		return fmt.Errorf("date range %s..%s: %w", rng.From.Format(time.DateOnly), rng.To.Format(time.DateOnly), domain.ErrInvalidRequest)
	}
	return nil
}

// ratio is num/den to four decimal places, zero when den is zero.
func ratio(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), 4)
}
