package domain

import (
	"fmt"
	"slices"
	"time"
)

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "CREATED"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusOnCredit OrderStatus = "ON_CREDIT"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

type OrderType string

const (
	OrderTypeOffline OrderType = "OFFLINE"
	OrderTypeOnline  OrderType = "ONLINE"
)

func (t OrderType) IsValid() bool {
	return t == OrderTypeOffline || t == OrderTypeOnline
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCredit
}

// OrderItem is an immutable order line. Name, unit and price are copied
// from the catalog when the order is created.
type OrderItem struct {
	ID                  EntityID
	ProductID           EntityID
	ProductNameSnapshot string
	UnitSnapshot        string
	UnitPriceSnapshot   Money
	Quantity            Quantity
	Subtotal            Money
}

func NewOrderItem(id, productID EntityID, name, unit string, unitPrice Money, qty Quantity) (OrderItem, error) {
	subtotal, err := unitPrice.Mul(qty)
	if err != nil {
		return OrderItem{}, fmt.Errorf("NewOrderItem: product %s: %w", productID, err)
	}
	return OrderItem{
		ID:                  id,
		ProductID:           productID,
		ProductNameSnapshot: name,
		UnitSnapshot:        unit,
		UnitPriceSnapshot:   unitPrice,
		Quantity:            qty,
		Subtotal:            subtotal,
	}, nil
}

func MustOrderItem(id, productID EntityID, name, unit string, unitPrice Money, qty Quantity) OrderItem {
	item, err := NewOrderItem(id, productID, name, unit, unitPrice, qty)
	if err != nil {
		panic(err)
	}
	return item
}

// Order is the sales aggregate root. Status and outstanding amount change
// only through the transition methods, each of which re-checks the
// aggregate invariants before returning.
type Order struct {
	id                EntityID
	orderType         OrderType
	items             []OrderItem
	status            OrderStatus
	totalAmount       Money
	outstandingAmount Money
	createdAt         time.Time
	createdBy         EntityID
	version           int64
}

type NewOrderParams struct {
	ID        EntityID
	Type      OrderType
	Items     []OrderItem
	CreatedAt time.Time
	CreatedBy EntityID
}

func NewOrder(p NewOrderParams) (*Order, error) {
	if p.ID.IsZero() || p.CreatedBy.IsZero() {
		return nil, fmt.Errorf("NewOrder: %w", ErrInvalidID)
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("NewOrder: %w", ErrEmptyOrderItems)
	}
	for _, item := range p.Items {
		if item.Quantity.Int64() <= 0 {
			return nil, fmt.Errorf("NewOrder: item %s: %w", item.ProductID, ErrInvalidQuantity)
		}
		want, err := item.UnitPriceSnapshot.Mul(item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("NewOrder: item %s: %w", item.ProductID, err)
		}
		if item.Subtotal != want {
			return nil, fmt.Errorf("NewOrder: item %s: subtotal mismatch: %w", item.ProductID, ErrInvalidAmount)
		}
	}

	total, err := sumSubtotals(p.Items)
	if err != nil {
		return nil, fmt.Errorf("NewOrder: %w", err)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("NewOrder: order total must be positive: %w", ErrInvalidAmount)
	}

	o := &Order{
		id:                p.ID,
		orderType:         p.Type,
		items:             slices.Clone(p.Items),
		status:            OrderStatusCreated,
		totalAmount:       total,
		outstandingAmount: total,
		createdAt:         p.CreatedAt,
		createdBy:         p.CreatedBy,
	}
	o.assertInvariants()
	return o, nil
}

// OrderSnapshot is the persisted shape of an Order.
type OrderSnapshot struct {
	ID                EntityID
	Type              OrderType
	Items             []OrderItem
	Status            OrderStatus
	TotalAmount       Money
	OutstandingAmount Money
	CreatedAt         time.Time
	CreatedBy         EntityID
	Version           int64
}

// RestoreOrder rebuilds an order from storage. Rows that break the
// aggregate invariants are reported as errors rather than panics.
func RestoreOrder(s OrderSnapshot) (*Order, error) {
	if len(s.Items) == 0 {
		return nil, fmt.Errorf("RestoreOrder: order %s: %w", s.ID, ErrEmptyOrderItems)
	}
	o := &Order{
		id:                s.ID,
		orderType:         s.Type,
		items:             slices.Clone(s.Items),
		status:            s.Status,
		totalAmount:       s.TotalAmount,
		outstandingAmount: s.OutstandingAmount,
		createdAt:         s.CreatedAt,
		createdBy:         s.CreatedBy,
		version:           s.Version,
	}
	if err := o.checkInvariants(); err != nil {
		return nil, fmt.Errorf("RestoreOrder: order %s: %w", s.ID, err)
	}
	return o, nil
}

func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:                o.id,
		Type:              o.orderType,
		Items:             o.Items(),
		Status:            o.status,
		TotalAmount:       o.totalAmount,
		OutstandingAmount: o.outstandingAmount,
		CreatedAt:         o.createdAt,
		CreatedBy:         o.createdBy,
		Version:           o.version,
	}
}

func (o *Order) ID() EntityID             { return o.id }
func (o *Order) Type() OrderType          { return o.orderType }
func (o *Order) Items() []OrderItem       { return slices.Clone(o.items) }
func (o *Order) Status() OrderStatus      { return o.status }
func (o *Order) TotalAmount() Money       { return o.totalAmount }
func (o *Order) OutstandingAmount() Money { return o.outstandingAmount }
func (o *Order) CreatedAt() time.Time     { return o.createdAt }
func (o *Order) CreatedBy() EntityID      { return o.createdBy }
func (o *Order) Version() int64           { return o.version }

// SetVersion is called by repositories after a successful write.
func (o *Order) SetVersion(v int64) { o.version = v }

func (o *Order) MarkAsPaid() error {
	if o.status == OrderStatusCanceled {
		return ErrAlreadyCanceled
	}
	if o.status != OrderStatusCreated && o.status != OrderStatusOnCredit {
		return &StatusTransitionError{From: o.status, To: OrderStatusPaid}
	}
	o.status = OrderStatusPaid
	o.outstandingAmount = Money{}
	o.assertInvariants()
	return nil
}

func (o *Order) MarkAsCredit() error {
	if o.status != OrderStatusCreated {
		return &StatusTransitionError{From: o.status, To: OrderStatusOnCredit}
	}
	o.status = OrderStatusOnCredit
	o.outstandingAmount = o.totalAmount
	o.assertInvariants()
	return nil
}

// MarkAsFailed leaves the outstanding amount untouched.
func (o *Order) MarkAsFailed() error {
	if o.status != OrderStatusCreated && o.status != OrderStatusOnCredit {
		return &StatusTransitionError{From: o.status, To: OrderStatusFailed}
	}
	o.status = OrderStatusFailed
	o.assertInvariants()
	return nil
}

// Cancel clears the outstanding amount: nothing is owed on a canceled order.
func (o *Order) Cancel() error {
	if o.status == OrderStatusCanceled {
		return ErrAlreadyCanceled
	}
	switch o.status {
	case OrderStatusCreated, OrderStatusOnCredit, OrderStatusPaid:
	default:
		return &StatusTransitionError{From: o.status, To: OrderStatusCanceled}
	}
	o.status = OrderStatusCanceled
	o.outstandingAmount = Money{}
	o.assertInvariants()
	return nil
}

// RecomputeOutstanding derives the outstanding amount from the sum of all
// recorded payments and settles the order once nothing is left to pay.
func (o *Order) RecomputeOutstanding(totalPaid Money) error {
	if o.status != OrderStatusOnCredit {
		return fmt.Errorf("RecomputeOutstanding: status %s: %w", o.status, ErrNotOnCredit)
	}
	outstanding, err := o.totalAmount.Sub(totalPaid)
	if err != nil {
		return fmt.Errorf("RecomputeOutstanding: paid %s of %s: %w", totalPaid, o.totalAmount, ErrOverpayment)
	}
	o.outstandingAmount = outstanding
	if outstanding.IsZero() {
		o.status = OrderStatusPaid
	}
	o.assertInvariants()
	return nil
}

func (o *Order) checkInvariants() error {
	sum, err := sumSubtotals(o.items)
	if err != nil {
		return fmt.Errorf("item subtotals: %v: %w", err, ErrInvariantViolation)
	}
	if sum != o.totalAmount {
		return fmt.Errorf("total %s does not match item subtotals: %w", o.totalAmount, ErrInvariantViolation)
	}
	if o.outstandingAmount.GreaterThan(o.totalAmount) {
		return fmt.Errorf("outstanding %s exceeds total %s: %w", o.outstandingAmount, o.totalAmount, ErrInvariantViolation)
	}
	settled := o.status == OrderStatusPaid || o.status == OrderStatusCanceled
	if o.outstandingAmount.IsZero() != settled {
		return fmt.Errorf("outstanding %s with status %s: %w", o.outstandingAmount, o.status, ErrInvariantViolation)
	}
	return nil
}

func (o *Order) assertInvariants() {
	if err := o.checkInvariants(); err != nil {
		panic(fmt.Sprintf("order %s: %v", o.id, err))
	}
}

func sumSubtotals(items []OrderItem) (Money, error) {
	var total Money
	for _, item := range items {
		next, err := total.Add(item.Subtotal)
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}
