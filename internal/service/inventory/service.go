package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

type stockStore interface {
	WithinProduct(ctx context.Context, productID domain.EntityID, fn func(ctx context.Context, ledger domain.StockLedger) error) error
	GetByProductID(ctx context.Context, productID domain.EntityID) (*domain.InventoryItem, error)
}

type auditRecorder interface {
	Record(ctx context.Context, e domain.AuditEvent) error
}

// StockRequest is one line of a batch stock operation.
type StockRequest struct {
	ProductID   domain.EntityID
	Quantity    domain.Quantity
	Reason      string
	ReferenceID *string
}

type Service struct {
	stock stockStore
	audit auditRecorder
	now   func() time.Time
}

func NewService(stock stockStore, audit auditRecorder) *Service {
	return &Service{
		stock: stock,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// IssueStock takes stock out line by line in request order. It stops at the
// first line that cannot be fulfilled; lines already issued stay issued and
// compensating them is the caller's job.
func (s *Service) IssueStock(ctx context.Context, reqs []StockRequest) error {
	for _, req := range reqs {
		if err := s.issueLine(ctx, req); err != nil {
			return fmt.Errorf("IssueStock: %w", err)
		}
	}
	return nil
}

func (s *Service) issueLine(ctx context.Context, req StockRequest) error {
	return s.stock.WithinProduct(ctx, req.ProductID, func(ctx context.Context, ledger domain.StockLedger) error {
		item, err := ledger.Find(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if item == nil || !item.CanFulfill(req.Quantity) {
			return &domain.InsufficientStockError{ProductID: req.ProductID}
		}
		if _, err := ledger.Decrease(ctx, req.Quantity); err != nil {
			return err
		}
		return ledger.RecordMovement(ctx, domain.NewStockMovement(
			req.ProductID, domain.MovementTypeOut, req.Quantity, req.Reason, req.ReferenceID, s.now(),
		))
	})
}

// ReturnStock puts stock back line by line. Increase creates missing items.
func (s *Service) ReturnStock(ctx context.Context, reqs []StockRequest) error {
	for _, req := range reqs {
		if err := s.increaseLine(ctx, req); err != nil {
			return fmt.Errorf("ReturnStock: %w", err)
		}
	}
	return nil
}

// ReceiveStock records goods received from a supplier. Lines without a
// reason are booked as purchases.
func (s *Service) ReceiveStock(ctx context.Context, actor domain.Actor, reqs []StockRequest) error {
	log := logging.FromContext(ctx)

	if err := actor.Allow(domain.RoleAdmin); err != nil {
		return fmt.Errorf("ReceiveStock: %w", err)
	}
	for _, req := range reqs {
		if req.Reason == "" {
			req.Reason = domain.ReasonPurchase
		}
		if err := s.increaseLine(ctx, req); err != nil {
			return fmt.Errorf("ReceiveStock: %w", err)
		}
	}

	log.Info("stock received", "lines", len(reqs), "actor_id", actor.ID)
	return nil
}

func (s *Service) increaseLine(ctx context.Context, req StockRequest) error {
	return s.stock.WithinProduct(ctx, req.ProductID, func(ctx context.Context, ledger domain.StockLedger) error {
		if _, err := ledger.Increase(ctx, req.Quantity); err != nil {
			return err
		}
		return ledger.RecordMovement(ctx, domain.NewStockMovement(
			req.ProductID, domain.MovementTypeIn, req.Quantity, req.Reason, req.ReferenceID, s.now(),
		))
	})
}

type AdjustRequest struct {
	ProductID domain.EntityID
	Delta     int64
	Reason    string
}

// AdjustStock applies a stock-count correction to an existing item. A zero
// delta changes nothing and records nothing.
func (s *Service) AdjustStock(ctx context.Context, actor domain.Actor, req AdjustRequest) (*domain.InventoryItem, error) {
	log := logging.FromContext(ctx)

	if err := actor.Allow(domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("AdjustStock: %w", err)
	}
	if req.Reason == "" {
		req.Reason = domain.ReasonStockOpname
	}

	var qty domain.Quantity
	if req.Delta != 0 {
		q, err := domain.NewQuantity(abs(req.Delta))
		if err != nil {
			return nil, fmt.Errorf("AdjustStock: delta %d: %w", req.Delta, err)
		}
		qty = q
	}

	var result *domain.InventoryItem
	err := s.stock.WithinProduct(ctx, req.ProductID, func(ctx context.Context, ledger domain.StockLedger) error {
		item, err := ledger.Find(ctx)
		if err != nil {
			return err
		}
		if req.Delta == 0 {
			result = item
			return nil
		}

		if req.Delta > 0 {
			item, err = ledger.Increase(ctx, qty)
		} else {
			item, err = ledger.Decrease(ctx, qty)
		}
		if err != nil {
			return err
		}
		result = item
		return ledger.RecordMovement(ctx, domain.NewStockMovement(
			req.ProductID, domain.MovementTypeAdjust, qty, req.Reason, nil, s.now(),
		))
	})
	if err != nil {
		return nil, fmt.Errorf("AdjustStock: %w", err)
	}
	if req.Delta == 0 {
		return result, nil
	}

	event := domain.NewAuditEvent(domain.AuditStockAdjusted, "inventory_item", req.ProductID, actor.ID, map[string]any{
		"delta":        req.Delta,
		"reason":       req.Reason,
		"new_quantity": result.Quantity,
	}, s.now())
	if err := s.audit.Record(ctx, event); err != nil {
		log.Warn("audit record failed", "action", event.Action, "product_id", req.ProductID, "error", err)
	}

	log.Info("stock adjusted",
		"product_id", req.ProductID,
		"delta", req.Delta,
		"quantity", result.Quantity,
	)
	return result, nil
}

func (s *Service) GetItem(ctx context.Context, productID domain.EntityID) (*domain.InventoryItem, error) {
	item, err := s.stock.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("GetItem: %w", err)
	}
	return item, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
