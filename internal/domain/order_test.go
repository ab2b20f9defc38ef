package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(productID string, price, qty int64) OrderItem {
	return MustOrderItem(
		MustEntityID("ord-1:"+productID), MustEntityID(productID),
		"Product "+productID, "pcs", MustMoney(price), MustQuantity(qty),
	)
}

func newTestOrder(t *testing.T, items ...OrderItem) *Order {
	t.Helper()
	if len(items) == 0 {
		items = []OrderItem{testItem("p-1", 10_000, 3)}
	}
	o, err := NewOrder(NewOrderParams{
		ID:        MustEntityID("ord-1"),
		Type:      OrderTypeOffline,
		Items:     items,
		CreatedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		CreatedBy: MustEntityID("user-1"),
	})
	require.NoError(t, err)
	return o
}

func TestNewOrder_TotalsFromSubtotals(t *testing.T) {
	o := newTestOrder(t, testItem("p-1", 10_000, 3), testItem("p-2", 2_500, 2))

	assert.Equal(t, int64(35_000), o.TotalAmount().Int64())
	assert.Equal(t, o.TotalAmount(), o.OutstandingAmount())
	assert.Equal(t, OrderStatusCreated, o.Status())
	assert.Len(t, o.Items(), 2)
}

func TestNewOrder_Rejects(t *testing.T) {
	free := testItem("p-1", 0, 1)
	tampered := testItem("p-1", 100, 2)
	tampered.Subtotal = MustMoney(150)
	half := testItem("p-1", math.MaxInt64/2+1, 1)
	otherHalf := testItem("p-2", math.MaxInt64/2+1, 1)

	tests := []struct {
		name    string
		params  NewOrderParams
		wantErr error
	}{
		{
			name:    "no items",
			params:  NewOrderParams{ID: MustEntityID("o"), CreatedBy: MustEntityID("u")},
			wantErr: ErrEmptyOrderItems,
		},
		{
			name:    "missing id",
			params:  NewOrderParams{CreatedBy: MustEntityID("u"), Items: []OrderItem{testItem("p-1", 1, 1)}},
			wantErr: ErrInvalidID,
		},
		{
			name:    "zero total",
			params:  NewOrderParams{ID: MustEntityID("o"), CreatedBy: MustEntityID("u"), Items: []OrderItem{free}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "subtotal mismatch",
			params:  NewOrderParams{ID: MustEntityID("o"), CreatedBy: MustEntityID("u"), Items: []OrderItem{tampered}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "total overflows",
			params:  NewOrderParams{ID: MustEntityID("o"), CreatedBy: MustEntityID("u"), Items: []OrderItem{half, otherHalf}},
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder(tc.params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewOrderItem_SubtotalOverflow(t *testing.T) {
	_, err := NewOrderItem(MustEntityID("o:rice"), MustEntityID("rice"), "Rice", "bag",
		MustMoney(10_000), MustQuantity(math.MaxInt64/10_000+1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOrder_ItemsAreCopied(t *testing.T) {
	o := newTestOrder(t)
	items := o.Items()
	items[0].Subtotal = MustMoney(1)

	assert.Equal(t, int64(30_000), o.Items()[0].Subtotal.Int64())
}

func TestOrder_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, o *Order)
		transition func(o *Order) error
		wantStatus OrderStatus
		wantErr    error
	}{
		{
			name:       "created to paid",
			transition: (*Order).MarkAsPaid,
			wantStatus: OrderStatusPaid,
		},
		{
			name:       "created to credit",
			transition: (*Order).MarkAsCredit,
			wantStatus: OrderStatusOnCredit,
		},
		{
			name:       "created to failed",
			transition: (*Order).MarkAsFailed,
			wantStatus: OrderStatusFailed,
		},
		{
			name:       "credit to paid",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsCredit()) },
			transition: (*Order).MarkAsPaid,
			wantStatus: OrderStatusPaid,
		},
		{
			name:       "credit to failed",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsCredit()) },
			transition: (*Order).MarkAsFailed,
			wantStatus: OrderStatusFailed,
		},
		{
			name:       "paid to credit rejected",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsPaid()) },
			transition: (*Order).MarkAsCredit,
			wantStatus: OrderStatusPaid,
			wantErr:    ErrInvalidStatusTransition,
		},
		{
			name:       "paid to failed rejected",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsPaid()) },
			transition: (*Order).MarkAsFailed,
			wantStatus: OrderStatusPaid,
			wantErr:    ErrInvalidStatusTransition,
		},
		{
			name:       "paid to paid rejected",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsPaid()) },
			transition: (*Order).MarkAsPaid,
			wantStatus: OrderStatusPaid,
			wantErr:    ErrInvalidStatusTransition,
		},
		{
			name:       "failed cannot be canceled",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsFailed()) },
			transition: (*Order).Cancel,
			wantStatus: OrderStatusFailed,
			wantErr:    ErrInvalidStatusTransition,
		},
		{
			name:       "canceled cannot be paid",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.Cancel()) },
			transition: (*Order).MarkAsPaid,
			wantStatus: OrderStatusCanceled,
			wantErr:    ErrAlreadyCanceled,
		},
		{
			name:       "cancel twice",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.Cancel()) },
			transition: (*Order).Cancel,
			wantStatus: OrderStatusCanceled,
			wantErr:    ErrAlreadyCanceled,
		},
		{
			name:       "paid can be canceled",
			setup:      func(t *testing.T, o *Order) { require.NoError(t, o.MarkAsPaid()) },
			transition: (*Order).Cancel,
			wantStatus: OrderStatusCanceled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrder(t)
			if tc.setup != nil {
				tc.setup(t, o)
			}

			err := tc.transition(o)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantStatus, o.Status())
		})
	}
}

func TestOrder_TransitionErrorCarriesStatuses(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkAsFailed())

	err := o.MarkAsCredit()

	var te *StatusTransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OrderStatusFailed, te.From)
	assert.Equal(t, OrderStatusOnCredit, te.To)
}

func TestOrder_OutstandingFollowsStatus(t *testing.T) {
	paid := newTestOrder(t)
	require.NoError(t, paid.MarkAsPaid())
	assert.True(t, paid.OutstandingAmount().IsZero())

	credit := newTestOrder(t)
	require.NoError(t, credit.MarkAsCredit())
	assert.Equal(t, credit.TotalAmount(), credit.OutstandingAmount())

	failed := newTestOrder(t)
	require.NoError(t, failed.MarkAsFailed())
	assert.Equal(t, failed.TotalAmount(), failed.OutstandingAmount())

	canceled := newTestOrder(t)
	require.NoError(t, canceled.MarkAsCredit())
	require.NoError(t, canceled.Cancel())
	assert.True(t, canceled.OutstandingAmount().IsZero())
}

func TestOrder_RecomputeOutstanding(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkAsCredit())

	require.NoError(t, o.RecomputeOutstanding(MustMoney(4_000)))
	assert.Equal(t, int64(26_000), o.OutstandingAmount().Int64())
	assert.Equal(t, OrderStatusOnCredit, o.Status())

	require.NoError(t, o.RecomputeOutstanding(MustMoney(30_000)))
	assert.True(t, o.OutstandingAmount().IsZero())
	assert.Equal(t, OrderStatusPaid, o.Status())
}

func TestOrder_RecomputeOutstanding_Rejects(t *testing.T) {
	t.Run("not on credit", func(t *testing.T) {
		o := newTestOrder(t)
		err := o.RecomputeOutstanding(MustMoney(1))
		assert.ErrorIs(t, err, ErrNotOnCredit)
		assert.Equal(t, OrderStatusCreated, o.Status())
	})

	t.Run("paid more than total", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkAsCredit())
		err := o.RecomputeOutstanding(MustMoney(30_001))
		assert.ErrorIs(t, err, ErrOverpayment)
		assert.Equal(t, int64(30_000), o.OutstandingAmount().Int64())
	})
}

func TestRestoreOrder(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkAsCredit())
	o.SetVersion(3)

	restored, err := RestoreOrder(o.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, o.Snapshot(), restored.Snapshot())

	corrupt := o.Snapshot()
	corrupt.OutstandingAmount = Money{}
	_, err = RestoreOrder(corrupt)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	wrongTotal := o.Snapshot()
	wrongTotal.TotalAmount = MustMoney(1)
	wrongTotal.OutstandingAmount = MustMoney(1)
	_, err = RestoreOrder(wrongTotal)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
