// Package handlers provides HTTP handlers for accounts and payments.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/users"
)

// Handler handles account HTTP requests.
type Handler struct {
	service *users.Service
	log     zerolog.Logger
}

// NewHandler creates a new users handler.
func NewHandler(service *users.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "users").Logger(),
	}
}

// HandleGetAccount returns the caller's account, including cash balance.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	user, err := h.service.Get(principal.UserID)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, user)
}

type creditRequest struct {
	Amount json.Number `json:"amount"`
}

// HandleCredit tops up the caller's cash balance. The payment provider
// collaborator has already settled the charge by the time this runs.
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	principal, _ := api.PrincipalFrom(r.Context())

	var req creditRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		api.WriteError(w, r, h.log, domain.E(domain.KindInvalidInput, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		api.WriteError(w, r, h.log, domain.Ef(domain.KindInvalidInput, "invalid amount %q", req.Amount))
		return
	}

	user, err := h.service.Credit(principal.UserID, amount)
	if err != nil {
		api.WriteError(w, r, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, user)
}
