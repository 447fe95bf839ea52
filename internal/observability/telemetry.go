package observability

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/arena-sync/internal/logging"
)

// Version прошивается через -ldflags при сборке релиза.
var Version = "dev"

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Эндпоинт коллектора берётся из ARENA_OTLP_ENDPOINT (host:port, без схемы);
// если переменная не задана, экспортер идёт на localhost:4318 по HTTP.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	endpoint := os.Getenv("ARENA_OTLP_ENDPOINT")
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	} else {
		endpoint = "localhost:4318"
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Instance-id позволяет различать несколько арен за одним коллектором
	instanceID := uuid.NewString()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
			semconv.ServiceInstanceID(instanceID),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s, instance=%s)",
		endpoint, serviceName, instanceID)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
