package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), "inkgate-test", 1, discardLogger(), WithWriter(&buf))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := otel.Tracer("tracer-test").Start(context.Background(), "gate.lookup")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "gate.lookup") {
		t.Errorf("exported output missing span name, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "inkgate-test") {
		t.Errorf("exported output missing service name, got %q", buf.String())
	}
}

func TestSetupClampsSampleRatio(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), "inkgate-test", -1, discardLogger(), WithWriter(&buf))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	_, span := otel.Tracer("tracer-test").Start(context.Background(), "always-on")
	defer span.End()

	if !span.SpanContext().IsSampled() {
		t.Error("out-of-range ratio should fall back to sampling every root span")
	}
}
