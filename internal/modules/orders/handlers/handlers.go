// Package handlers provides HTTP handlers for order placement and history.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/orders"
)

// Handler handles order HTTP requests.
type Handler struct {
	service *orders.Service
	log     zerolog.Logger
}

// NewHandler creates a new orders handler.
func NewHandler(service *orders.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "orders").Logger(),
	}
}

type placeOrderRequest struct {
	Symbol   string      `json:"symbol"`
	Type     string      `json:"type"`
	Quantity json.Number `json:"quantity"`
}

// HandlePlaceOrder places a market order for the authenticated user.
func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	var req placeOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		api.WriteError(w, r, h.log, domain.E(domain.KindInvalidInput, "invalid request body"))
		return
	}

	// Fractional quantities are rejected before they can truncate.
	quantity, err := req.Quantity.Int64()
	if err != nil {
		api.WriteError(w, r, h.log, domain.Ef(domain.KindInvalidQuantity, "quantity must be a whole number, got %s", req.Quantity))
		return
	}

	result, err := h.service.PlaceOrder(r.Context(), principal.UserID, req.Symbol, domain.OrderType(req.Type), quantity)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusCreated, result)
}

// HandleCancelOrder cancels a pending order owned by the caller.
func (h *Handler) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	order, err := h.service.CancelOrder(chi.URLParam(r, "id"), principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, order)
}

// HandleListOrders returns the caller's orders, newest first. Query params:
// status, type, limit.
func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	limit, ok := parseLimit(w, r, h.log)
	if !ok {
		return
	}

	list, err := h.service.ListOrders(
		principal.UserID,
		r.URL.Query().Get("status"),
		r.URL.Query().Get("type"),
		limit,
	)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, list)
}

// HandleListTransactions returns the caller's executed trades, newest first.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	limit, ok := parseLimit(w, r, h.log)
	if !ok {
		return
	}

	list, err := h.service.ListTransactions(principal.UserID, limit)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, list)
}

func parseLimit(w http.ResponseWriter, r *http.Request, log zerolog.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		api.WriteError(w, r, log, domain.Ef(domain.KindInvalidInput, "invalid limit %q", raw))
		return 0, false
	}
	return limit, true
}
