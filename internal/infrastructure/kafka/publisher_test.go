package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/kafka"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := kafka.NewPublisher(w, zerolog.Nop())
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(),
		entity.Event{ID: "e1", Type: entity.EventTransferDrafted, CompanyID: "c1", AggregateID: "t1", OccurredAt: at,
			Payload: map[string]any{"lines": 2}},
		entity.Event{ID: "e2", Type: entity.EventOrderReceived, CompanyID: "c2", AggregateID: "o1", OccurredAt: at},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "c1", string(w.msgs[0].Key))
	assert.Equal(t, "c2", string(w.msgs[1].Key))
	assert.Equal(t, at, w.msgs[0].Time)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, entity.EventTransferDrafted, string(w.msgs[0].Headers[0].Value))

	var decoded entity.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "t1", decoded.AggregateID)
	assert.EqualValues(t, 2, decoded.Payload["lines"])
}

func TestPublisher_SinEventos(t *testing.T) {
	w := &fakeWriter{err: errors.New("no debería llamarse")}
	assert.NoError(t, kafka.NewPublisher(w, zerolog.Nop()).Publish(context.Background()))
}

func TestPublisher_ErrorDelWriter(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído")}
	p := kafka.NewPublisher(w, zerolog.Nop())
	err := p.Publish(context.Background(), entity.Event{ID: "e1", Type: entity.EventOrderCancelled, CompanyID: "c1"})
	assert.ErrorContains(t, err, "broker caído")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewWriter(t *testing.T) {
	w := kafka.NewWriter([]string{"k1:9092", "k2:9092"}, "inventory.replenishment")
	assert.Equal(t, "inventory.replenishment", w.Topic)
	assert.Contains(t, w.Addr.String(), "k1:9092")
}
