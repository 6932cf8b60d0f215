package middleware

import (
	"net/http"
	"strings"

	"github.com/legido/auth-backend/internal/auth"
)

// RequireAuth returns middleware that demands a valid access token in the
// Authorization header and puts the authenticated user id in the context.
// Refresh tokens are rejected here; they are only good for /auth/refresh.
func RequireAuth(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				unauthorized(w, "Authentication required")
				return
			}
			userID, err := codec.VerifyAccessToken(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}
			ctx := auth.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

func extractBearer(r *http.Request) string {
	s := r.Header.Get("Authorization")
	if s == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}
