package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/legido/auth-backend/internal/pkg/tracing"
)

func TestTracing_DisabledInitIsNoOp(t *testing.T) {
	cleanup, err := tracing.Init("auth-backend-test", "", 1.0)
	if err != nil {
		t.Fatalf("Init with empty endpoint must not fail: %v", err)
	}
	cleanup()
}

func TestTracing_PassesRequestThrough(t *testing.T) {
	var sawRequest bool
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRequest = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !sawRequest {
		t.Fatal("Expected the wrapped handler to run")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	var capturedTraceID string
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTraceID = tracing.TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// With no exporter configured the span may be non-recording; the request
	// must still complete and any trace id seen by the handler must match the
	// response header.
	if got := rec.Header().Get(TraceIDHeader); got != capturedTraceID {
		t.Errorf("Header trace id %q does not match context trace id %q", got, capturedTraceID)
	}
}
