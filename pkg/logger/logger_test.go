package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNew_JSONEnProduccion(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Service: "motor", Output: &buf})

	l.Info().Msg("no debe salir")
	l.Warn().Str("company_id", "c1").Msg("faltante sin proveedor")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "c1", line["company_id"])
	assert.Equal(t, "motor", line["service"])
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Output: &buf})
	c := l.Component("scheduler")
	c.Info().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"scheduler"`)
	assert.NotContains(t, buf.String(), `"service"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("desconocido"))
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	noSpan := WithTrace(context.Background(), base)
	noSpan.Info().Msg("sin span")
	assert.NotContains(t, buf.String(), "trace_id")
	buf.Reset()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	withSpan := WithTrace(ctx, base)
	withSpan.Info().Msg("con span")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, sc.TraceID().String(), line["trace_id"])
	assert.Equal(t, sc.SpanID().String(), line["span_id"])
}
