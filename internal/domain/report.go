package domain

import "time"

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

type SalesSummaryRow struct {
	Day               time.Time
	Type              OrderType
	OrderCount        int64
	TotalAmount       int64
	OutstandingAmount int64
}

type CreditOutstandingRow struct {
	OrderID           EntityID
	Type              OrderType
	CreatedAt         time.Time
	TotalAmount       int64
	OutstandingAmount int64
}

type CreditPaymentRow struct {
	PaymentID   string
	OrderID     EntityID
	OrderType   OrderType
	OrderStatus OrderStatus
	OrderDate   time.Time
	OrderTotal  int64
	Amount      int64
	OccurredAt  time.Time
}

type MovementFilter struct {
	ProductID *EntityID
	From      *time.Time
	To        *time.Time
	Limit     int
}
