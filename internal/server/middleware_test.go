package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/posts", nil)
	rec := httptest.NewRecorder()
	RequestIDMiddleware(handler).ServeHTTP(rec, req)

	if seen == "" {
		t.Error("request ID missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, want %q", got, seen)
	}
}

func TestLoggingMiddleware_CapturesStatusAndFields(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "endpoint", "/api/posts/{id}")
		AddError(r.Context(), errors.New("boom"))
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/api/posts/1", nil)
	rec := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("log output missing captured status: %s", out)
	}
	if !strings.Contains(out, `"endpoint":"/api/posts/{id}"`) {
		t.Errorf("log output missing enriched field: %s", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("log output missing error field: %s", out)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadlineSet bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			t.Error("context not cancelled within timeout")
		}
	})

	req := httptest.NewRequest("GET", "/api/posts", nil)
	rec := httptest.NewRecorder()
	TimeoutMiddleware(10 * time.Millisecond)(handler).ServeHTTP(rec, req)

	if !deadlineSet {
		t.Error("deadline not propagated to handler context")
	}
}

func TestAddLogField_NoMiddlewareIsNoop(t *testing.T) {
	// Must not panic without the logging middleware in the chain.
	AddLogField(context.Background(), "k", "v")
	AddError(context.Background(), io.EOF)
}
