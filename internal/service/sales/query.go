package sales

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

func (s *Service) GetOrder(ctx context.Context, id domain.EntityID) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetOrder: %w", err)
	}
	return o, nil
}

// ListPayments returns the payments of an existing order, oldest first.
func (s *Service) ListPayments(ctx context.Context, orderID domain.EntityID) ([]domain.Payment, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	payments, err := s.payments.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	return payments, nil
}
