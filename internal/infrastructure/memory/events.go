package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

var _ ports.EventPublisher = (*EventRecorder)(nil)

// EventRecorder publicador que guarda los eventos en memoria.
type EventRecorder struct {
	mu     sync.Mutex
	events []entity.Event
	err    error
}

func (r *EventRecorder) Publish(_ context.Context, events ...entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

// FailWith hace que las siguientes publicaciones fallen (nil restablece).
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Events copia de lo publicado.
func (r *EventRecorder) Events() []entity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Event(nil), r.events...)
}

// OfType eventos publicados de un tipo.
func (r *EventRecorder) OfType(eventType string) []entity.Event {
	var out []entity.Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
