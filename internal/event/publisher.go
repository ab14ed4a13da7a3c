// Package event provides event publishing abstractions for the audit trail
// described in SPEC_FULL.md §3. Implementations can be swapped without
// changing the service layer.
package event

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cauth/cauth/internal/domain"
)

// Publisher is the interface for publishing audit events.
type Publisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
	PublishBatch(ctx context.Context, events []domain.AuditEvent) error
	Close() error
}

// LoggingPublisher implements Publisher by logging events through slog.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	data, _ := json.Marshal(event.Data)
	p.logger.Info("audit event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("actor_login", event.ActorLogin),
		slog.String("data", string(data)),
	)
	return nil
}

func (p *LoggingPublisher) PublishBatch(ctx context.Context, events []domain.AuditEvent) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *LoggingPublisher) Close() error { return nil }

// NoopPublisher discards every event.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(ctx context.Context, event domain.AuditEvent) error { return nil }

func (p *NoopPublisher) PublishBatch(ctx context.Context, events []domain.AuditEvent) error {
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
