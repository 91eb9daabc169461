// Package kafka publica los eventos del motor en un tópico de Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// MessageWriter lo implementa *kafkago.Writer; en tests se reemplaza por un fake.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher serializa cada evento a JSON con clave = empresa, así los eventos de un tenant
// caen en la misma partición y conservan su orden.
type Publisher struct {
	writer MessageWriter
	log    zerolog.Logger
}

// NewWriter construye el writer de segmentio para los brokers y el tópico dados.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(writer MessageWriter, log zerolog.Logger) *Publisher {
	return &Publisher{writer: writer, log: log.With().Str("component", "kafka").Logger()}
}

// Publish escribe todos los eventos en un solo lote. El contexto de traza viaja en los headers.
func (p *Publisher) Publish(ctx context.Context, events ...entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("serializar evento %s: %w", ev.Type, err)
		}
		headers := []kafkago.Header{{Key: "event_type", Value: []byte(ev.Type)}}
		for k, v := range carrier {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, kafkago.Message{
			Key:     []byte(ev.CompanyID),
			Value:   payload,
			Headers: headers,
			Time:    ev.OccurredAt,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar %d eventos: %w", len(msgs), err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("eventos publicados")
	return nil
}

// Close vacía el lote pendiente y cierra las conexiones.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
