// Package memory holds in-process stores with the same contracts as the
// Postgres repositories. Service tests run against them.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/keylock"
)

type InventoryStore struct {
	locks *keylock.Map

	mu        sync.Mutex
	items     map[domain.EntityID]domain.InventoryItem
	movements []domain.StockMovement

	// FailMovement, when set, is returned by RecordMovement.
	FailMovement error
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		locks: keylock.New(),
		items: make(map[domain.EntityID]domain.InventoryItem),
	}
}

// WithinProduct holds the product's lock for the whole of fn. Writes made
// through the ledger are applied immediately; there is no rollback.
func (s *InventoryStore) WithinProduct(ctx context.Context, productID domain.EntityID, fn func(ctx context.Context, ledger domain.StockLedger) error) error {
	unlock := s.locks.Lock(productID.String())
	defer unlock()
	return fn(ctx, &ledger{store: s, productID: productID})
}

func (s *InventoryStore) Set(productID domain.EntityID, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[productID] = domain.InventoryItem{ProductID: productID, Quantity: qty, UpdatedAt: time.Now().UTC()}
}

func (s *InventoryStore) GetByProductID(_ context.Context, productID domain.EntityID) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[productID]
	if !ok {
		return nil, fmt.Errorf("GetByProductID: %w", domain.ErrNotFound)
	}
	return &item, nil
}

func (s *InventoryStore) Movements() []domain.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.movements)
}

type ledger struct {
	store     *InventoryStore
	productID domain.EntityID
}

func (l *ledger) Find(_ context.Context) (*domain.InventoryItem, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	item, ok := l.store.items[l.productID]
	if !ok {
		return nil, fmt.Errorf("Find: %s: %w", l.productID, domain.ErrNotFound)
	}
	return &item, nil
}

func (l *ledger) Increase(_ context.Context, q domain.Quantity) (*domain.InventoryItem, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	item, ok := l.store.items[l.productID]
	if !ok {
		item = domain.InventoryItem{ProductID: l.productID}
	}
	item.Increase(q)
	item.UpdatedAt = time.Now().UTC()
	l.store.items[l.productID] = item
	return &item, nil
}

func (l *ledger) Decrease(_ context.Context, q domain.Quantity) (*domain.InventoryItem, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	item, ok := l.store.items[l.productID]
	if !ok {
		return nil, fmt.Errorf("Decrease: %s: %w", l.productID, domain.ErrNotFound)
	}
	if err := item.Decrease(q); err != nil {
		return nil, fmt.Errorf("Decrease: %w", err)
	}
	item.UpdatedAt = time.Now().UTC()
	l.store.items[l.productID] = item
	return &item, nil
}

func (l *ledger) RecordMovement(_ context.Context, m domain.StockMovement) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if l.store.FailMovement != nil {
		return l.store.FailMovement
	}
	l.store.movements = append(l.store.movements, m)
	return nil
}
