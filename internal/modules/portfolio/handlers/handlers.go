// Package handlers provides HTTP handlers for portfolio analytics.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPositions returns the caller's holdings with live values.
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	positions, err := h.service.Positions(principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, positions)
}

// HandleGetSummary returns the aggregate portfolio view.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	summary, err := h.service.GetSummary(principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, summary)
}

// HandleGetDistribution returns the per-stock value split.
func (h *Handler) HandleGetDistribution(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	distribution, err := h.service.Distribution(principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, distribution)
}

// HandleGetGrowth returns the portfolio value series for a period
// selector (query param: period, default 1M).
func (h *Handler) HandleGetGrowth(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1M"
	}

	points, err := h.service.Growth(principal.UserID, period)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, points)
}
