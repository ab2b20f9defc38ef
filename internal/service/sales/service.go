package sales

import (
	"context"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/keylock"
	"github.com/josh-kwaku/toko-backend/internal/logging"
	"github.com/josh-kwaku/toko-backend/internal/service/inventory"
)

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id domain.EntityID) (*domain.Order, error)
}

type paymentStore interface {
	ListByOrderID(ctx context.Context, orderID domain.EntityID) ([]domain.Payment, error)
	WithinOrder(ctx context.Context, orderID domain.EntityID, fn func(ctx context.Context, ledger domain.CreditLedger) error) error
}

type catalog interface {
	GetByIDs(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error)
}

type stockAllocator interface {
	IssueStock(ctx context.Context, reqs []inventory.StockRequest) error
	ReturnStock(ctx context.Context, reqs []inventory.StockRequest) error
}

type auditRecorder interface {
	Record(ctx context.Context, e domain.AuditEvent) error
}

// Service runs the order lifecycle. Operations on one order id are
// serialized in-process. Across processes, settlement holds the order row
// for its whole read-check-write and other transitions rely on the store's
// version check.
type Service struct {
	orders   orderStore
	payments paymentStore
	catalog  catalog
	stock    stockAllocator
	audit    auditRecorder
	locks    *keylock.Map
	now      func() time.Time
}

func NewService(
	orders orderStore,
	payments paymentStore,
	catalog catalog,
	stock stockAllocator,
	audit auditRecorder,
) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		catalog:  catalog,
		stock:    stock,
		audit:    audit,
		locks:    keylock.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) lockOrder(id domain.EntityID) func() {
	return s.locks.Lock(id.String())
}

// recordAudit never fails the caller.
func (s *Service) recordAudit(ctx context.Context, e domain.AuditEvent) {
	if err := s.audit.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("audit record failed",
			"action", e.Action,
			"entity_id", e.EntityID,
			"error", err,
		)
	}
}

func stockRequests(o *domain.Order, reason string) []inventory.StockRequest {
	ref := o.ID().String()
	items := o.Items()
	reqs := make([]inventory.StockRequest, len(items))
	for i, item := range items {
		reqs[i] = inventory.StockRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Reason:      reason,
			ReferenceID: &ref,
		}
	}
	return reqs
}
