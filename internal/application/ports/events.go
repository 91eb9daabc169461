package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// EventPublisher publica eventos del motor después del commit. Un fallo de publicación
// no revierte la operación: se registra en el log.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.Event) error
}

// NoopPublisher descarta los eventos (sin brokers configurados).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...entity.Event) error { return nil }

// NewEvent arma un evento con id nuevo.
func NewEvent(eventType, companyID, aggregateID string, at time.Time, payload map[string]any) entity.Event {
	return entity.Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		CompanyID:   companyID,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Payload:     payload,
	}
}
