// Package handlers provides HTTP handlers for watchlist management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/watchlist"
)

// Handler handles watchlist HTTP requests.
type Handler struct {
	service *watchlist.Service
	log     zerolog.Logger
}

// NewHandler creates a new watchlist handler.
func NewHandler(service *watchlist.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleGet returns the caller's watched stocks.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	watched, err := h.service.Get(principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, watched)
}

type addRequest struct {
	Symbol string `json:"symbol"`
}

// HandleAdd puts a symbol on the caller's watchlist and returns the
// updated list.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, r, h.log, domain.E(domain.KindInvalidInput, "invalid request body"))
		return
	}

	watched, err := h.service.Add(principal.UserID, req.Symbol)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusCreated, watched)
}

// HandleRemove takes a symbol off the caller's watchlist and returns the
// updated list.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	watched, err := h.service.Remove(principal.UserID, chi.URLParam(r, "symbol"))
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, watched)
}
