// Package handlers provides HTTP handlers for the stock catalog.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/stocks"
)

// Handler handles stock HTTP requests.
type Handler struct {
	service *stocks.Service
	log     zerolog.Logger
}

// NewHandler creates a new stocks handler.
func NewHandler(service *stocks.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stocks").Logger(),
	}
}

// HandleList returns the full stock catalog with cached quotes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, list)
}

// HandleGet returns one stock by symbol.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.Get(chi.URLParam(r, "symbol"))
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, stock)
}

// HandleHistory returns OHLCV points for a symbol. Query params: range
// (1D..1Y, ALL), from (RFC3339), limit.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	rangeSel := r.URL.Query().Get("range")

	var from time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.WriteError(w, r, h.log, domain.Ef(domain.KindInvalidInput, "invalid from time %q", raw))
			return
		}
		from = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.WriteError(w, r, h.log, domain.Ef(domain.KindInvalidInput, "invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	points, err := h.service.History(symbol, rangeSel, from, limit)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, points)
}

// HandleRefresh fetches a fresh quote for one symbol. Spends one unit of
// the provider's daily budget.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.RefreshStock(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, stock)
}
