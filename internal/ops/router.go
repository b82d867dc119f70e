// Package ops exposes the agent's local operations surface: health,
// prometheus metrics and a read-only view of the order board and alert
// queue for the terminal UI.
package ops

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baccaristic/foodify-restaurant-agent/internal/alerts"
	"github.com/baccaristic/foodify-restaurant-agent/internal/board"
	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// NewRouter builds the local HTTP router.
func NewRouter(h *Health, b *board.Board, q *alerts.Queue, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health/live", h.LivenessHandler())
	r.Get("/health/ready", h.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Orders())
	})

	r.Get("/alerts", func(w http.ResponseWriter, r *http.Request) {
		type alertsView struct {
			Active *domain.OrderNotification  `json:"active,omitempty"`
			Queued []domain.OrderNotification `json:"queued"`
		}
		view := alertsView{Queued: q.Queued()}
		if active, ok := q.Active(); ok {
			view.Active = &active
		}
		writeJSON(w, http.StatusOK, view)
	})

	log.Debug("ops router ready")
	return r
}
