package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers account and payment routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/account", h.HandleGetAccount)
	r.Post("/payments/credit", h.HandleCredit)
}
