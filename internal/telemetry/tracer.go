// Package telemetry installs the OpenTelemetry trace provider for the
// gate. Spans are exported to stdout, which is enough to inspect the
// pipeline locally; deployments fronting a collector replace the writer.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type settings struct {
	out io.Writer
}

type Option func(*settings)

// WithWriter redirects span output away from stdout.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// Setup installs the global tracer provider and returns a function that
// flushes and stops it. Root spans are sampled at sampleRatio; inbound
// sampling decisions are honored regardless. Ratios outside (0, 1] fall
// back to sampling everything.
func Setup(ctx context.Context, serviceName string, sampleRatio float64, logger *slog.Logger, opts ...Option) (func(context.Context) error, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if s.out != nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithWriter(s.out))
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled",
		slog.String("service", serviceName),
		slog.Float64("sample_ratio", sampleRatio),
	)

	return tp.Shutdown, nil
}
