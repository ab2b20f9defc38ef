package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const auditEventColumns = `id, action, entity, entity_id, actor_id, metadata,
	status, attempts, last_attempt, occurred_at`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, e domain.AuditEvent) error {
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (`+auditEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Action, e.Entity, e.EntityID, e.ActorID, metadata,
		domain.AuditEventStatusPending, 0, nil, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

// ClaimPending leases up to limit pending events and bumps their attempt
// count. An event stays invisible to other dispatchers until lease elapses,
// so a crashed dispatcher's events are picked up again later.
func (r *AuditRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE audit_events SET attempts = attempts + 1, last_attempt = now()
		WHERE id IN (
			SELECT id FROM audit_events
			WHERE status = $1 AND (last_attempt IS NULL OR last_attempt < now() - make_interval(secs => $2))
			ORDER BY occurred_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+auditEventColumns,
		domain.AuditEventStatusPending, lease.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return events, nil
}

func (r *AuditRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuditEventStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE audit_events SET status = $1 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAuditEvent(s scanner) (*domain.AuditEvent, error) {
	var (
		e        domain.AuditEvent
		metadata []byte
	)
	err := s.Scan(
		&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.ActorID, &metadata,
		&e.Status, &e.Attempts, &e.LastAttempt, &e.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	e.Metadata = metadata
	return &e, nil
}
