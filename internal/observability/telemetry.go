package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/tileworld/internal/logging"
)

// InstrumentationName - имя трейсера компонентов клиента
const InstrumentationName = "github.com/annel0/tileworld"

// Tracer возвращает трейсер из глобального TracerProvider
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// endpoint - host:port OTLP HTTP приёмника; пустая строка - значение по умолчанию (localhost:4318).
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return install(ctx, serviceName, sdktrace.WithBatcher(exp))
}

func install(ctx context.Context, serviceName string, opts ...sdktrace.TracerProviderOption) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (service=%s)", serviceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
