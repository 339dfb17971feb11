package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newCaptureLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, nil),
	})
}

func TestMiddlewareInstallsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf)

	handler := Middleware(logger, func(*http.Request) string { return "req_abc123" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("Handled")
		}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, FieldRequestID+"=req_abc123") {
		t.Fatalf("expected request id on the record, got %q", out)
	}
	if !strings.Contains(out, FieldComponent+"="+ComponentHTTP) {
		t.Fatalf("expected component on the record, got %q", out)
	}
}

func TestMiddlewareWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf)

	handler := Middleware(logger, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("Handled")
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	if !strings.Contains(out, "Handled") {
		t.Fatalf("expected the handler record, got %q", out)
	}
	if strings.Contains(out, FieldRequestID+"=") {
		t.Fatalf("expected no request id without an extractor, got %q", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("expected a usable fallback logger")
	}
	if l.Component() != ComponentApp {
		t.Fatalf("expected component %q, got %q", ComponentApp, l.Component())
	}
}

func TestWithComponentRescopes(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf).WithComponent(ComponentStorage)

	if got := logger.Component(); got != ComponentStorage {
		t.Fatalf("expected component %q, got %q", ComponentStorage, got)
	}
	logger.Info("Scoped")
	if !strings.Contains(buf.String(), FieldComponent+"="+ComponentStorage) {
		t.Fatalf("expected rescoped component on the record, got %q", buf.String())
	}
}
