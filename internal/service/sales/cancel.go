package sales

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

// CancelOrder cancels and persists the order, then returns its stock when
// the order had already taken stock out. A CREATED order never did.
func (s *Service) CancelOrder(ctx context.Context, actor domain.Actor, orderID domain.EntityID) (*domain.Order, error) {
	log := logging.FromContext(ctx)

	if err := actor.Allow(domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}

	previous := order.Status()
	if err := order.Cancel(); err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}

	if previous == domain.OrderStatusPaid || previous == domain.OrderStatusOnCredit {
		if err := s.stock.ReturnStock(ctx, stockRequests(order, domain.ReasonCancelOrder)); err != nil {
			return nil, fmt.Errorf("CancelOrder: order %s canceled, stock return incomplete: %w", orderID, err)
		}
	}

	s.recordAudit(ctx, domain.NewAuditEvent(domain.AuditOrderCanceled, "order", orderID, actor.ID, map[string]any{
		"previous_status": previous,
		"canceled_by":     actor.ID,
	}, s.now()))

	log.Info("order canceled",
		"order_id", orderID,
		"previous_status", previous,
	)
	return order, nil
}
