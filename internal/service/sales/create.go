package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

type OrderLine struct {
	ProductID domain.EntityID
	Quantity  domain.Quantity
}

type CreateOrderInput struct {
	// OrderID is optional; a uuid is generated when empty.
	OrderID string
	Type    domain.OrderType
	Method  domain.PaymentMethod
	Actor   domain.Actor
	Lines   []OrderLine
}

// CreateOrder persists the order before touching stock. When issuance fails
// the stored order is moved to FAILED and returned together with the error.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	log := logging.FromContext(ctx)

	if err := in.Actor.Allow(domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}
	if !in.Type.IsValid() {
		return nil, fmt.Errorf("CreateOrder: order type %q: %w", in.Type, domain.ErrInvalidRequest)
	}
	if !in.Method.IsValid() {
		return nil, fmt.Errorf("CreateOrder: payment method %q: %w", in.Method, domain.ErrInvalidRequest)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("CreateOrder: %w", domain.ErrEmptyOrderItems)
	}

	orderID := in.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	id, err := domain.ParseEntityID(orderID)
	if err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}

	items, err := s.snapshotItems(ctx, id, in.Lines)
	if err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:        id,
		Type:      in.Type,
		Items:     items,
		CreatedAt: s.now(),
		CreatedBy: in.Actor.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}

	unlock := s.lockOrder(id)
	defer unlock()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}

	if issueErr := s.stock.IssueStock(ctx, stockRequests(order, domain.ReasonSaleOrder)); issueErr != nil {
		return s.failOrder(ctx, order, in.Actor, issueErr)
	}

	switch in.Method {
	case domain.PaymentMethodCash:
		err = order.MarkAsPaid()
	case domain.PaymentMethodCredit:
		err = order.MarkAsCredit()
	}
	if err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", err)
	}

	s.recordAudit(ctx, domain.NewAuditEvent(domain.AuditOrderCreated, "order", order.ID(), in.Actor.ID, map[string]any{
		"type":           order.Type(),
		"payment_method": in.Method,
		"status":         order.Status(),
		"total_amount":   order.TotalAmount().Int64(),
	}, s.now()))

	log.Info("order created",
		"order_id", order.ID(),
		"status", order.Status(),
		"total_amount", order.TotalAmount().Int64(),
		"lines", len(items),
	)
	return order, nil
}

func (s *Service) failOrder(ctx context.Context, order *domain.Order, actor domain.Actor, issueErr error) (*domain.Order, error) {
	if err := order.MarkAsFailed(); err != nil {
		return nil, fmt.Errorf("CreateOrder: %w", errors.Join(issueErr, err))
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("CreateOrder: mark failed: %w", errors.Join(issueErr, err))
	}

	s.recordAudit(ctx, domain.NewAuditEvent(domain.AuditOrderFailed, "order", order.ID(), actor.ID, map[string]any{
		"reason": issueErr.Error(),
	}, s.now()))

	logging.FromContext(ctx).Info("order failed on stock issuance",
		"order_id", order.ID(),
		"error", issueErr,
	)
	return order, fmt.Errorf("CreateOrder: %w", issueErr)
}

// snapshotItems copies name, unit and price from the catalog into new lines.
func (s *Service) snapshotItems(ctx context.Context, orderID domain.EntityID, lines []OrderLine) ([]domain.OrderItem, error) {
	ids := make([]domain.EntityID, 0, len(lines))
	seen := make(map[domain.EntityID]bool, len(lines))
	for _, l := range lines {
		if seen[l.ProductID] {
			return nil, fmt.Errorf("snapshotItems: product %s listed twice: %w", l.ProductID, domain.ErrInvalidRequest)
		}
		seen[l.ProductID] = true
		ids = append(ids, l.ProductID)
	}

	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("snapshotItems: %w", err)
	}
	byID := make(map[domain.EntityID]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("snapshotItems: product %s: %w", l.ProductID, domain.ErrNotFound)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("snapshotItems: product %s: %w", l.ProductID, domain.ErrInactiveProduct)
		}
		price, err := domain.NewMoney(p.Price)
		if err != nil {
			return nil, fmt.Errorf("snapshotItems: product %s: %w", l.ProductID, err)
		}
		itemID := domain.MustEntityID(orderID.String() + ":" + l.ProductID.String())
		item, err := domain.NewOrderItem(itemID, p.ID, p.Name, p.Unit, price, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("snapshotItems: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
