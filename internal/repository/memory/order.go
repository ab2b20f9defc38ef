package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/keylock"
)

// OrderStore keeps order snapshots and applies the same version check as
// the Postgres repository. Its per-order locks stand in for row locks.
type OrderStore struct {
	locks *keylock.Map

	mu     sync.Mutex
	orders map[domain.EntityID]domain.OrderSnapshot
	writes int
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		locks:  keylock.New(),
		orders: make(map[domain.EntityID]domain.OrderSnapshot),
	}
}

func (s *OrderStore) Create(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID()]; ok {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateOrder)
	}
	s.orders[o.ID()] = o.Snapshot()
	s.writes++
	return nil
}

// Update waits for any settlement scope holding the order.
func (s *OrderStore) Update(_ context.Context, o *domain.Order) error {
	unlock := s.locks.Lock(o.ID().String())
	defer unlock()
	if err := s.save(o); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (s *OrderStore) save(o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID()]
	if !ok || cur.Version != o.Version() {
		return fmt.Errorf("order %s at version %d: %w", o.ID(), o.Version(), domain.ErrVersionConflict)
	}
	o.SetVersion(o.Version() + 1)
	s.orders[o.ID()] = o.Snapshot()
	s.writes++
	return nil
}

func (s *OrderStore) GetByID(_ context.Context, id domain.EntityID) (*domain.Order, error) {
	s.mu.Lock()
	snap, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	o, err := domain.RestoreOrder(snap)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

// Writes counts successful Create and Update calls.
func (s *OrderStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
