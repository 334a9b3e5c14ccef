package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SubscriberCounter exposes the hub's current audience size
type SubscriberCounter interface {
	ClientCount() int
}

// HealthHandler serves liveness information
type HealthHandler struct {
	version   string
	startedAt time.Time
	hub       SubscriberCounter
	logger    *slog.Logger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(version string, hub SubscriberCounter, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		version:   version,
		startedAt: time.Now(),
		hub:       hub,
		logger:    logger.With(slog.String("handler", "health")),
	}
}

// Routes returns a chi router for health endpoints
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetHealth)
	return r
}

// GetHealth handles GET /api/healthz
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	subscribers := 0
	if h.hub != nil {
		subscribers = h.hub.ClientCount()
	}

	render.JSON(w, r, map[string]interface{}{
		"status":      "healthy",
		"version":     h.version,
		"uptime":      time.Since(h.startedAt).String(),
		"subscribers": subscribers,
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
