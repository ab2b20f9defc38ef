package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payment is an append-only settlement fact recorded against a credit order.
type Payment struct {
	ID         uuid.UUID
	OrderID    EntityID
	Amount     Money
	OccurredAt time.Time
	CreatedAt  time.Time
	CreatedBy  EntityID
}

func NewPayment(orderID EntityID, amount Money, occurredAt, createdAt time.Time, createdBy EntityID) (*Payment, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("NewPayment: amount must be positive: %w", ErrInvalidAmount)
	}
	if orderID.IsZero() {
		return nil, fmt.Errorf("NewPayment: %w", ErrInvalidID)
	}
	return &Payment{
		ID:         uuid.New(),
		OrderID:    orderID,
		Amount:     amount,
		OccurredAt: occurredAt,
		CreatedAt:  createdAt,
		CreatedBy:  createdBy,
	}, nil
}

// CreditLedger is the settlement view of one order handed out inside an
// exclusive scope. The order is loaded once the scope holds the order's
// lock, and nothing written through the ledger is visible to others until
// the scope ends without error.
type CreditLedger interface {
	Order() *Order
	PaidTotal(ctx context.Context) (Money, error)
	AppendPayment(ctx context.Context, p *Payment) error
	SaveOrder(ctx context.Context, o *Order) error
}
