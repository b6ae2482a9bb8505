// Package api holds the HTTP surface shared by all module handlers:
// response helpers, the domain-error to status mapping, and the
// authenticated principal.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError maps a domain error to its HTTP status and writes the error
// envelope. Internal errors are logged with the request id and reported
// without detail.
func WriteError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)

	// Clients get the bare message; the kind travels in "code" and any
	// wrapped cause stays in the server log.
	message := "internal error"
	var de *domain.Error
	if errors.As(err, &de) && kind != domain.KindInternal {
		message = de.Message
	} else {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Internal error")
	}

	WriteJSON(w, log, status, map[string]string{
		"error": message,
		"code":  string(kind),
	})
}

// StatusForKind maps an error kind to its HTTP status code.
func StatusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindInvalidQuantity:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnknownSymbol, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindIllegalState, domain.KindDuplicate, domain.KindConflict:
		return http.StatusConflict
	case domain.KindCapacity, domain.KindInsufficientFunds, domain.KindInsufficientShares:
		return http.StatusUnprocessableEntity
	case domain.KindStalePrice, domain.KindProviderError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
