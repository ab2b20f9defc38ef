package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

// PaymentStore appends payment facts for orders held in an OrderStore.
type PaymentStore struct {
	orders *OrderStore

	mu       sync.Mutex
	payments []domain.Payment
}

func NewPaymentStore(orders *OrderStore) *PaymentStore {
	return &PaymentStore{orders: orders}
}

func (s *PaymentStore) ListByOrderID(_ context.Context, orderID domain.EntityID) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return slices.Clip(out), nil
}

// WithinOrder holds the order's lock for the whole of fn. Appended payments
// and the saved order are applied only when fn returns nil.
func (s *PaymentStore) WithinOrder(ctx context.Context, orderID domain.EntityID, fn func(ctx context.Context, ledger domain.CreditLedger) error) error {
	unlock := s.orders.locks.Lock(orderID.String())
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("WithinOrder: %w", err)
	}

	l := &creditLedger{store: s, order: order}
	if err := fn(ctx, l); err != nil {
		return fmt.Errorf("WithinOrder: %w", err)
	}

	if l.saved != nil {
		if err := s.orders.save(l.saved); err != nil {
			return fmt.Errorf("WithinOrder: %w", err)
		}
	}
	s.mu.Lock()
	s.payments = append(s.payments, l.pending...)
	s.mu.Unlock()
	return nil
}

func (s *PaymentStore) sum(orderID domain.EntityID, extra []domain.Payment) (domain.Money, error) {
	var total domain.Money
	for _, p := range slices.Concat(s.payments, extra) {
		if p.OrderID != orderID {
			continue
		}
		next, err := total.Add(p.Amount)
		if err != nil {
			return domain.Money{}, fmt.Errorf("sum: %w", err)
		}
		total = next
	}
	return total, nil
}

type creditLedger struct {
	store   *PaymentStore
	order   *domain.Order
	pending []domain.Payment
	saved   *domain.Order
}

func (l *creditLedger) Order() *domain.Order { return l.order }

func (l *creditLedger) PaidTotal(_ context.Context) (domain.Money, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.store.sum(l.order.ID(), l.pending)
}

func (l *creditLedger) AppendPayment(_ context.Context, p *domain.Payment) error {
	l.pending = append(l.pending, *p)
	return nil
}

// SaveOrder is checked against the stored version when the scope commits.
func (l *creditLedger) SaveOrder(_ context.Context, o *domain.Order) error {
	l.saved = o
	return nil
}
