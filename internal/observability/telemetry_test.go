package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstallRecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	rec := tracetest.NewSpanRecorder()
	shutdown, err := install(context.Background(), "tileworld-test", sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "decode")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "decode", spans[0].Name())
	assert.Equal(t, InstrumentationName, spans[0].InstrumentationScope().Name)

	require.NoError(t, shutdown(context.Background()))
}
