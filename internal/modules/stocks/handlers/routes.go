package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
)

// RegisterRoutes registers all stock routes.
func (h *Handler) RegisterRoutes(r chi.Router, log zerolog.Logger) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{symbol}", h.HandleGet)
		r.Get("/symbol/{symbol}/history", h.HandleHistory)
		r.With(api.RequireAdmin(log)).Post("/refresh/{symbol}", h.HandleRefresh)
	})
}
