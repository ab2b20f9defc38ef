package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type AuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent

	// Err, when set, is returned by Record and nothing is stored.
	Err error
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Record(_ context.Context, e domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.events = append(a.events, e)
	return nil
}

func (a *AuditLog) Events() []domain.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.events)
}
