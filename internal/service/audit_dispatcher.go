package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const auditBatchSize = 50

type AuditDispatcherConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Lease is how long a claimed event stays hidden from other dispatchers.
	Lease time.Duration
}

// AuditDispatcher publishes recorded audit events to Kafka. Events that keep
// failing are parked as failed after MaxAttempts claims.
type AuditDispatcher struct {
	events auditEventRepository
	writer messageWriter
	logger *slog.Logger
	cfg    AuditDispatcherConfig
}

func NewAuditDispatcher(events auditEventRepository, writer messageWriter, logger *slog.Logger, cfg AuditDispatcherConfig) *AuditDispatcher {
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &AuditDispatcher{
		events: events,
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func (d *AuditDispatcher) Start(ctx context.Context) {
	d.logger.Info("audit dispatcher started", "interval", d.cfg.Interval)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("audit dispatcher stopped")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll dispatches one batch and reports how many events were published.
func (d *AuditDispatcher) poll(ctx context.Context) int {
	events, err := d.events.ClaimPending(ctx, auditBatchSize, d.cfg.Lease)
	if err != nil {
		d.logger.Error("failed to claim pending audit events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := d.dispatch(ctx, event); err != nil {
			d.logger.Error("failed to dispatch audit event",
				"audit_event_id", event.ID,
				"attempts", event.Attempts,
				"error", err,
			)
			continue
		}
		published++
	}
	return published
}

func (d *AuditDispatcher) dispatch(ctx context.Context, event domain.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("unencodable audit event", "audit_event_id", event.ID, "error", err)
		return d.events.UpdateStatus(ctx, event.ID, domain.AuditEventStatusFailed)
	}

	msg := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "entity", Value: []byte(event.Entity)},
		},
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		if event.Attempts >= d.cfg.MaxAttempts {
			d.logger.Warn("audit event gave up after max attempts",
				"audit_event_id", event.ID,
				"attempts", event.Attempts,
			)
			if uerr := d.events.UpdateStatus(ctx, event.ID, domain.AuditEventStatusFailed); uerr != nil {
				return fmt.Errorf("dispatch: mark failed: %w", uerr)
			}
		}
		return fmt.Errorf("dispatch: publish: %w", err)
	}

	if err := d.events.UpdateStatus(ctx, event.ID, domain.AuditEventStatusDispatched); err != nil {
		return fmt.Errorf("dispatch: mark dispatched: %w", err)
	}
	return nil
}
