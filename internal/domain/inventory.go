package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementTypeIn     MovementType = "IN"
	MovementTypeOut    MovementType = "OUT"
	MovementTypeAdjust MovementType = "ADJUST"
)

const (
	ReasonSaleOrder   = "SALE_ORDER"
	ReasonCancelOrder = "CANCEL_ORDER"
	ReasonStockOpname = "STOCK_OPNAME"
	ReasonPurchase    = "PURCHASE"
)

// InventoryItem is the current on-hand quantity of one product.
type InventoryItem struct {
	ProductID EntityID
	Quantity  int64
	UpdatedAt time.Time
}

func (i InventoryItem) CanFulfill(q Quantity) bool {
	return i.Quantity >= q.Int64()
}

func (i *InventoryItem) Increase(q Quantity) {
	i.Quantity += q.Int64()
}

func (i *InventoryItem) Decrease(q Quantity) error {
	if !i.CanFulfill(q) {
		return &InsufficientStockError{ProductID: i.ProductID}
	}
	i.Quantity -= q.Int64()
	return nil
}

// StockMovement is an append-only record of one quantity change.
type StockMovement struct {
	ID          uuid.UUID
	ProductID   EntityID
	Type        MovementType
	Quantity    Quantity
	Reason      string
	ReferenceID *string
	OccurredAt  time.Time
}

func NewStockMovement(productID EntityID, typ MovementType, qty Quantity, reason string, referenceID *string, at time.Time) StockMovement {
	return StockMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		Type:        typ,
		Quantity:    qty,
		Reason:      reason,
		ReferenceID: referenceID,
		OccurredAt:  at,
	}
}

// StockLedger is the per-product view handed out inside an exclusive scope.
// Every call made through it is serialized with every other scope on the
// same product.
type StockLedger interface {
	Find(ctx context.Context) (*InventoryItem, error)
	Increase(ctx context.Context, q Quantity) (*InventoryItem, error)
	Decrease(ctx context.Context, q Quantity) (*InventoryItem, error)
	RecordMovement(ctx context.Context, m StockMovement) error
}
