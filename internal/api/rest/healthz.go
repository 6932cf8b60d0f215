package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/legido/auth-backend/internal/repository"
)

// HealthzHandler handles health check endpoints
type HealthzHandler struct {
	store repository.Store
}

// NewHealthzHandler creates a new healthz handler
func NewHealthzHandler(store repository.Store) *HealthzHandler {
	return &HealthzHandler{store: store}
}

// RegisterRoutes registers the health check endpoints. GET /health is a
// liveness alias kept for load balancers that expect a single flat path.
func (h *HealthzHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Live).Methods("GET")
	router.HandleFunc("/healthz/live", h.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", h.Ready).Methods("GET")
}

// Live handles GET /healthz/live - liveness probe (process is alive)
func (h *HealthzHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Ready handles GET /healthz/ready - readiness probe (dependencies are healthy)
func (h *HealthzHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Check database connectivity
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"reason": "database_unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
