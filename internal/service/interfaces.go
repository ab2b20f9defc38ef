package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type userRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type auditEventRepository interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.AuditEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuditEventStatus) error
}

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}
