package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all order routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.HandlePlaceOrder)
		r.Get("/", h.HandleListOrders)
		r.Patch("/{id}/cancel", h.HandleCancelOrder)
	})
	r.Get("/transactions", h.HandleListTransactions)
}
