package sales

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/repository/memory"
	"github.com/josh-kwaku/toko-backend/internal/service/inventory"
)

var (
	cashier = domain.Actor{ID: domain.MustEntityID("cashier-1"), Role: domain.RoleCashier}
	admin   = domain.Actor{ID: domain.MustEntityID("admin-1"), Role: domain.RoleAdmin}
)

type fixture struct {
	svc      *Service
	orders   *memory.OrderStore
	payments *memory.PaymentStore
	stock    *memory.InventoryStore
	catalog  *memory.Catalog
	audit    *memory.AuditLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := memory.NewOrderStore()
	f := &fixture{
		orders:   orders,
		payments: memory.NewPaymentStore(orders),
		stock:    memory.NewInventoryStore(),
		catalog: memory.NewCatalog(
			domain.Product{ID: domain.MustEntityID("rice"), Name: "Rice 5kg", Unit: "bag", Price: 10_000, IsActive: true},
			domain.Product{ID: domain.MustEntityID("oil"), Name: "Cooking Oil", Unit: "bottle", Price: 2_500, IsActive: true},
			domain.Product{ID: domain.MustEntityID("old"), Name: "Discontinued", Unit: "pcs", Price: 1_000, IsActive: false},
		),
		audit: memory.NewAuditLog(),
	}
	f.stock.Set(domain.MustEntityID("rice"), 10)
	f.stock.Set(domain.MustEntityID("oil"), 5)
	f.svc = NewService(f.orders, f.payments, f.catalog, inventory.NewService(f.stock, f.audit), f.audit)
	return f
}

func line(productID string, qty int64) OrderLine {
	return OrderLine{ProductID: domain.MustEntityID(productID), Quantity: domain.MustQuantity(qty)}
}

func (f *fixture) createOrder(t *testing.T, method domain.PaymentMethod, lines ...OrderLine) *domain.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Type:   domain.OrderTypeOffline,
		Method: method,
		Actor:  cashier,
		Lines:  lines,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) quantity(t *testing.T, productID string) int64 {
	t.Helper()
	item, err := f.stock.GetByProductID(context.Background(), domain.MustEntityID(productID))
	require.NoError(t, err)
	return item.Quantity
}

func auditActions(a *memory.AuditLog) []domain.AuditAction {
	var out []domain.AuditAction
	for _, e := range a.Events() {
		out = append(out, e.Action)
	}
	return out
}

func TestCreateOrder_Cash(t *testing.T) {
	f := newFixture(t)

	o := f.createOrder(t, domain.PaymentMethodCash, line("rice", 3), line("oil", 2))

	assert.Equal(t, domain.OrderStatusPaid, o.Status())
	assert.Equal(t, int64(35_000), o.TotalAmount().Int64())
	assert.True(t, o.OutstandingAmount().IsZero())

	items := o.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Rice 5kg", items[0].ProductNameSnapshot)
	assert.Equal(t, "bag", items[0].UnitSnapshot)
	assert.Equal(t, o.ID().String()+":rice", items[0].ID.String())

	assert.Equal(t, int64(7), f.quantity(t, "rice"))
	assert.Equal(t, int64(3), f.quantity(t, "oil"))
	assert.Len(t, f.stock.Movements(), 2)
	assert.Contains(t, auditActions(f.audit), domain.AuditOrderCreated)

	stored, err := f.svc.GetOrder(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status())
}

func TestCreateOrder_Credit(t *testing.T) {
	f := newFixture(t)

	o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 3))

	assert.Equal(t, domain.OrderStatusOnCredit, o.Status())
	assert.Equal(t, int64(30_000), o.OutstandingAmount().Int64())
}

func TestCreateOrder_SnapshotIsolatedFromCatalog(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCash, line("rice", 1))

	f.catalog.Put(domain.Product{ID: domain.MustEntityID("rice"), Name: "Rice Premium", Unit: "bag", Price: 99_000, IsActive: true})

	stored, err := f.svc.GetOrder(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, "Rice 5kg", stored.Items()[0].ProductNameSnapshot)
	assert.Equal(t, int64(10_000), stored.TotalAmount().Int64())
}

func TestCreateOrder_IssuanceFailureMarksFailed(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		OrderID: "ord-fail",
		Type:    domain.OrderTypeOffline,
		Method:  domain.PaymentMethodCash,
		Actor:   cashier,
		Lines:   []OrderLine{line("rice", 2), line("oil", 6)},
	})

	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "oil", ise.ProductID.String())
	require.NotNil(t, o)
	assert.Equal(t, domain.OrderStatusFailed, o.Status())

	stored, err := f.svc.GetOrder(context.Background(), domain.MustEntityID("ord-fail"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status())
	assert.Equal(t, stored.TotalAmount(), stored.OutstandingAmount())

	// the rice line was issued before oil failed and is left for the caller
	assert.Equal(t, int64(8), f.quantity(t, "rice"))
	assert.Equal(t, int64(5), f.quantity(t, "oil"))
	assert.Contains(t, auditActions(f.audit), domain.AuditOrderFailed)
}

func TestCreateOrder_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateOrderInput
		wantErr error
	}{
		{
			name:    "unknown product",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier, Lines: []OrderLine{line("ghost", 1)}},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "inactive product",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier, Lines: []OrderLine{line("rice", 1), line("old", 1)}},
			wantErr: domain.ErrInactiveProduct,
		},
		{
			name:    "no lines",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier},
			wantErr: domain.ErrEmptyOrderItems,
		},
		{
			name:    "duplicate product lines",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier, Lines: []OrderLine{line("rice", 1), line("rice", 2)}},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown payment method",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: "BARTER", Actor: cashier, Lines: []OrderLine{line("rice", 1)}},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "anonymous actor",
			in:      CreateOrderInput{Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Lines: []OrderLine{line("rice", 1)}},
			wantErr: domain.ErrForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateOrder(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, f.orders.Writes())
			assert.Empty(t, f.stock.Movements())
		})
	}
}

func TestCreateOrder_DuplicateID(t *testing.T) {
	f := newFixture(t)
	in := CreateOrderInput{OrderID: "ord-1", Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier, Lines: []OrderLine{line("rice", 1)}}

	_, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
	assert.Equal(t, int64(9), f.quantity(t, "rice"))
}

func TestCancelOrder_ReturnsIssuedStock(t *testing.T) {
	for _, method := range []domain.PaymentMethod{domain.PaymentMethodCash, domain.PaymentMethodCredit} {
		t.Run(string(method), func(t *testing.T) {
			f := newFixture(t)
			o := f.createOrder(t, method, line("rice", 3), line("oil", 2))

			canceled, err := f.svc.CancelOrder(context.Background(), cashier, o.ID())
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusCanceled, canceled.Status())
			assert.True(t, canceled.OutstandingAmount().IsZero())

			assert.Equal(t, int64(10), f.quantity(t, "rice"))
			assert.Equal(t, int64(5), f.quantity(t, "oil"))

			out := map[string]int64{}
			in := map[string]int64{}
			for _, m := range f.stock.Movements() {
				switch m.Type {
				case domain.MovementTypeOut:
					out[m.ProductID.String()] += m.Quantity.Int64()
				case domain.MovementTypeIn:
					in[m.ProductID.String()] += m.Quantity.Int64()
					assert.Equal(t, domain.ReasonCancelOrder, m.Reason)
					assert.Equal(t, o.ID().String(), *m.ReferenceID)
				}
			}
			assert.Equal(t, out, in)
		})
	}
}

func TestCancelOrder_CreatedOrderTouchesNoStock(t *testing.T) {
	f := newFixture(t)
	item := domain.MustOrderItem(domain.MustEntityID("ord-c:rice"), domain.MustEntityID("rice"), "Rice 5kg", "bag", domain.MustMoney(10_000), domain.MustQuantity(2))
	o, err := domain.NewOrder(domain.NewOrderParams{
		ID: domain.MustEntityID("ord-c"), Type: domain.OrderTypeOffline,
		Items: []domain.OrderItem{item}, CreatedAt: time.Now(), CreatedBy: cashier.ID,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), o))

	canceled, err := f.svc.CancelOrder(context.Background(), admin, o.ID())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status())
	assert.Empty(t, f.stock.Movements())
	assert.Equal(t, int64(10), f.quantity(t, "rice"))
}

func TestCancelOrder_Rejects(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCash, line("rice", 1))

	_, err := f.svc.CancelOrder(context.Background(), cashier, o.ID())
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), cashier, o.ID())
	assert.ErrorIs(t, err, domain.ErrAlreadyCanceled)
	assert.Equal(t, int64(10), f.quantity(t, "rice"), "second cancel returns nothing")

	_, err = f.svc.CancelOrder(context.Background(), cashier, domain.MustEntityID("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	failed, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Type: domain.OrderTypeOffline, Method: domain.PaymentMethodCash, Actor: cashier, Lines: []OrderLine{line("oil", 50)},
	})
	require.Error(t, err)
	_, err = f.svc.CancelOrder(context.Background(), cashier, failed.ID())
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestCancelOrder_AuditFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCash, line("rice", 1))
	f.audit.Err = errors.New("audit store unavailable")

	canceled, err := f.svc.CancelOrder(context.Background(), cashier, o.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status())
}

func TestPayCredit_PartialThenFull(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 3))

	o, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 4_000})
	require.NoError(t, err)
	assert.Equal(t, int64(26_000), o.OutstandingAmount().Int64())
	assert.Equal(t, domain.OrderStatusOnCredit, o.Status())

	o, p, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 26_000})
	require.NoError(t, err)
	assert.True(t, o.OutstandingAmount().IsZero())
	assert.Equal(t, domain.OrderStatusPaid, o.Status())
	assert.Equal(t, int64(26_000), p.Amount.Int64())

	payments, err := f.svc.ListPayments(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestPayCredit_Rejects(t *testing.T) {
	t.Run("overpayment", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 3))
		_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 10_000})
		require.NoError(t, err)

		_, _, err = f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 20_001})
		assert.ErrorIs(t, err, domain.ErrOverpayment)

		stored, err := f.svc.GetOrder(context.Background(), o.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(20_000), stored.OutstandingAmount().Int64())
		payments, _ := f.svc.ListPayments(context.Background(), o.ID())
		assert.Len(t, payments, 1)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 1))
		for _, amount := range []int64{0, -5} {
			_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: amount})
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 1))
		_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: domain.Actor{ID: domain.MustEntityID("x"), Role: "GUEST"}, OrderID: o.ID(), Amount: 1})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: domain.MustEntityID("nope"), Amount: 1})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPayCredit_NotOnCredit(t *testing.T) {
	f := newFixture(t)

	paid := f.createOrder(t, domain.PaymentMethodCash, line("rice", 1))

	canceled := f.createOrder(t, domain.PaymentMethodCredit, line("oil", 1))
	_, err := f.svc.CancelOrder(context.Background(), admin, canceled.ID())
	require.NoError(t, err)

	item := domain.MustOrderItem(domain.MustEntityID("ord-new:rice"), domain.MustEntityID("rice"), "Rice 5kg", "bag", domain.MustMoney(10_000), domain.MustQuantity(1))
	created, err := domain.NewOrder(domain.NewOrderParams{
		ID: domain.MustEntityID("ord-new"), Type: domain.OrderTypeOffline,
		Items: []domain.OrderItem{item}, CreatedAt: time.Now(), CreatedBy: cashier.ID,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), created))

	for _, id := range []domain.EntityID{paid.ID(), canceled.ID(), created.ID()} {
		_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: id, Amount: 1})
		assert.ErrorIs(t, err, domain.ErrNotOnCredit, "order %s", id)
	}
}

func TestPayCredit_OutstandingDerivedFromPayments(t *testing.T) {
	amounts := [][]int64{
		{1_000, 2_000, 3_000},
		{3_000, 1_000, 2_000},
		{2_000, 3_000, 1_000},
	}
	for _, seq := range amounts {
		f := newFixture(t)
		o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 1))
		var err error
		for _, a := range seq {
			o, _, err = f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: a})
			require.NoError(t, err)
		}
		assert.Equal(t, int64(4_000), o.OutstandingAmount().Int64())
	}
}

func TestPayCredit_ConcurrentPaymentsCannotOverpay(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 3))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 20_000})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrOverpayment)
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	stored, err := f.svc.GetOrder(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), stored.OutstandingAmount().Int64())
}

func TestPayCredit_SeparateServicesShareSettlementLock(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 3))
	other := NewService(f.orders, f.payments, f.catalog, inventory.NewService(f.stock, f.audit), f.audit)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, svc := range []*Service{f.svc, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 20_000})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrOverpayment)
	}
	assert.Equal(t, 1, ok)

	payments, err := f.svc.ListPayments(context.Background(), o.ID())
	require.NoError(t, err)
	require.Len(t, payments, 1)

	stored, err := f.svc.GetOrder(context.Background(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), stored.OutstandingAmount().Int64())

	settled, _, err := other.PayCredit(context.Background(), PayCreditInput{Actor: cashier, OrderID: o.ID(), Amount: 10_000})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, settled.Status())
}

func TestPayCredit_FailedSettlementLeavesNoPayment(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, domain.PaymentMethodCredit, line("rice", 1))
	ctx := context.Background()

	stale, err := f.orders.GetByID(ctx, o.ID())
	require.NoError(t, err)
	fresh, err := f.orders.GetByID(ctx, o.ID())
	require.NoError(t, err)
	require.NoError(t, f.orders.Update(ctx, fresh))

	err = f.payments.WithinOrder(ctx, o.ID(), func(ctx context.Context, ledger domain.CreditLedger) error {
		p, err := domain.NewPayment(o.ID(), domain.MustMoney(1_000), time.Now(), time.Now(), cashier.ID)
		if err != nil {
			return err
		}
		if err := ledger.AppendPayment(ctx, p); err != nil {
			return err
		}
		return ledger.SaveOrder(ctx, stale)
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	payments, err := f.svc.ListPayments(ctx, o.ID())
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreateOrder_QuantityOverflowRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Type:   domain.OrderTypeOffline,
		Method: domain.PaymentMethodCash,
		Actor:  cashier,
		Lines:  []OrderLine{line("rice", math.MaxInt64/10_000+1)},
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Zero(t, f.orders.Writes())
	assert.Equal(t, int64(10), f.quantity(t, "rice"))
}
