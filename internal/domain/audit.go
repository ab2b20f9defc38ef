package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditOrderCreated          AuditAction = "ORDER_CREATED"
	AuditOrderFailed           AuditAction = "ORDER_FAILED"
	AuditOrderCanceled         AuditAction = "ORDER_CANCELED"
	AuditCreditPaymentRecorded AuditAction = "CREDIT_PAYMENT_RECORDED"
	AuditStockAdjusted         AuditAction = "STOCK_ADJUSTED"
)

type AuditEventStatus string

const (
	AuditEventStatusPending    AuditEventStatus = "pending"
	AuditEventStatusDispatched AuditEventStatus = "dispatched"
	AuditEventStatusFailed     AuditEventStatus = "failed"
)

type AuditEvent struct {
	ID          uuid.UUID        `json:"id"`
	Action      AuditAction      `json:"action"`
	Entity      string           `json:"entity"`
	EntityID    string           `json:"entity_id"`
	ActorID     string           `json:"actor_id"`
	Metadata    json.RawMessage  `json:"metadata,omitempty"`
	Status      AuditEventStatus `json:"-"`
	Attempts    int              `json:"-"`
	LastAttempt *time.Time       `json:"-"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// NewAuditEvent marshals metadata eagerly; a value that cannot be encoded is
// dropped rather than failing the caller.
func NewAuditEvent(action AuditAction, entity string, entityID EntityID, actor EntityID, metadata any, at time.Time) AuditEvent {
	var raw json.RawMessage
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			raw = b
		}
	}
	return AuditEvent{
		ID:         uuid.New(),
		Action:     action,
		Entity:     entity,
		EntityID:   entityID.String(),
		ActorID:    actor.String(),
		Metadata:   raw,
		Status:     AuditEventStatusPending,
		OccurredAt: at,
	}
}
