package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/legido/auth-backend/internal/service"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service's sentinel errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic message; internals never leak.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPasswordMismatch):
		respondError(w, http.StatusBadRequest, "Passwords do not match!")
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, "Email already registered")
	// Statuses differ for the two login failures but the message is shared,
	// so response bodies alone do not reveal which emails are registered.
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "Invalid credentials")
	case errors.Is(err, service.ErrWrongPassword):
		respondError(w, http.StatusForbidden, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidResetToken):
		respondError(w, http.StatusNotFound, "Invalid reset token")
	case errors.Is(err, service.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthenticated")
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
