package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

type PayCreditInput struct {
	Actor   domain.Actor
	OrderID domain.EntityID
	Amount  int64
	// PaidAt is the business date of the payment; zero means now.
	PaidAt time.Time
}

// PayCredit records a payment against a credit order. The outstanding
// amount is always rebuilt from the full payment history, never decremented.
// The overpayment check, the new payment and the order update share one
// settlement scope, so concurrent payers of one order cannot both pass it.
func (s *Service) PayCredit(ctx context.Context, in PayCreditInput) (*domain.Order, *domain.Payment, error) {
	log := logging.FromContext(ctx)

	if err := in.Actor.Allow(domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, nil, fmt.Errorf("PayCredit: %w", err)
	}

	unlock := s.lockOrder(in.OrderID)
	defer unlock()

	var (
		order   *domain.Order
		payment *domain.Payment
	)
	now := s.now()
	err := s.payments.WithinOrder(ctx, in.OrderID, func(ctx context.Context, ledger domain.CreditLedger) error {
		order = ledger.Order()
		if order.Status() != domain.OrderStatusOnCredit {
			return fmt.Errorf("order %s is %s: %w", in.OrderID, order.Status(), domain.ErrNotOnCredit)
		}

		amount, err := domain.NewMoney(in.Amount)
		if err != nil || amount.IsZero() {
			return fmt.Errorf("amount %d must be positive: %w", in.Amount, domain.ErrInvalidAmount)
		}

		paid, err := ledger.PaidTotal(ctx)
		if err != nil {
			return err
		}
		outstanding, err := order.TotalAmount().Sub(paid)
		if err != nil || amount.GreaterThan(outstanding) {
			return fmt.Errorf("amount %s, outstanding %s: %w", amount, outstanding, domain.ErrOverpayment)
		}

		paidAt := in.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		payment, err = domain.NewPayment(in.OrderID, amount, paidAt.UTC(), now, in.Actor.ID)
		if err != nil {
			return err
		}
		if err := ledger.AppendPayment(ctx, payment); err != nil {
			return err
		}

		totalPaid, err := ledger.PaidTotal(ctx)
		if err != nil {
			return err
		}
		if err := order.RecomputeOutstanding(totalPaid); err != nil {
			return err
		}
		return ledger.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("PayCredit: %w", err)
	}
	amount := payment.Amount

	s.recordAudit(ctx, domain.NewAuditEvent(domain.AuditCreditPaymentRecorded, "order", in.OrderID, in.Actor.ID, map[string]any{
		"payment_id":  payment.ID,
		"amount":      amount.Int64(),
		"outstanding": order.OutstandingAmount().Int64(),
		"status":      order.Status(),
	}, now))

	log.Info("credit payment recorded",
		"order_id", in.OrderID,
		"payment_id", payment.ID,
		"amount", amount.Int64(),
		"outstanding", order.OutstandingAmount().Int64(),
		"status", order.Status(),
	)
	return order, payment, nil
}
