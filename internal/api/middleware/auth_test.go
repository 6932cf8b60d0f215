package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/legido/auth-backend/internal/auth"
)

func newTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func okHandler(gotUserID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID = auth.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.IssueAccessToken("user-123")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var gotUserID string
	handler := RequireAuth(codec)(okHandler(&gotUserID))

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if gotUserID != "user-123" {
		t.Errorf("Expected user-123 in context, got %q", gotUserID)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	codec := newTestCodec(t)

	var gotUserID string
	handler := RequireAuth(codec)(okHandler(&gotUserID))

	req := httptest.NewRequest("GET", "/auth/me", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("Expected WWW-Authenticate header")
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	codec := newTestCodec(t)

	var gotUserID string
	handler := RequireAuth(codec)(okHandler(&gotUserID))

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	codec := newTestCodec(t)
	refresh, err := codec.IssueRefreshToken("user-123")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	var gotUserID string
	handler := RequireAuth(codec)(okHandler(&gotUserID))

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for refresh token, got %d", w.Code)
	}
}
