package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlen/stockpilot/internal/domain"
)

type fakeAuthenticator struct {
	principals map[string]Principal
}

func (f *fakeAuthenticator) Authenticate(token string) (*Principal, error) {
	if p, ok := f.principals[token]; ok {
		return &p, nil
	}
	return nil, nil
}

func authStack(auth Authenticator, admin bool) http.Handler {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": principal.UserID})
	})

	if admin {
		inner = RequireAdmin(log)(inner)
	}
	return RequireAuth(auth, log)(inner)
}

func TestRequireAuth(t *testing.T) {
	auth := &fakeAuthenticator{principals: map[string]Principal{
		"tok-user": {UserID: "u1", Role: domain.RoleUser},
	}}
	handler := authStack(auth, false)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok-user")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "u1", body["user_id"])
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "tok-user"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	auth := &fakeAuthenticator{principals: map[string]Principal{
		"tok-user":  {UserID: "u1", Role: domain.RoleUser},
		"tok-admin": {UserID: "a1", Role: domain.RoleAdmin},
	}}
	handler := authStack(auth, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-user")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-admin")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusForKind(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindInvalidInput:       http.StatusBadRequest,
		domain.KindInvalidQuantity:    http.StatusBadRequest,
		domain.KindUnauthenticated:    http.StatusUnauthorized,
		domain.KindForbidden:          http.StatusForbidden,
		domain.KindUnknownSymbol:      http.StatusNotFound,
		domain.KindNotFound:           http.StatusNotFound,
		domain.KindIllegalState:       http.StatusConflict,
		domain.KindDuplicate:          http.StatusConflict,
		domain.KindConflict:           http.StatusConflict,
		domain.KindCapacity:           http.StatusUnprocessableEntity,
		domain.KindInsufficientFunds:  http.StatusUnprocessableEntity,
		domain.KindInsufficientShares: http.StatusUnprocessableEntity,
		domain.KindStalePrice:         http.StatusServiceUnavailable,
		domain.KindProviderError:      http.StatusServiceUnavailable,
		domain.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind), string(kind))
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, log, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
	assert.Equal(t, string(domain.KindInternal), body["code"])

	rec = httptest.NewRecorder()
	WriteError(rec, req, log, domain.E(domain.KindInsufficientFunds, "balance below 450.00"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "balance below 450.00", body["error"])

	// A wrapped cause stays server-side; only the message crosses the wire.
	rec = httptest.NewRecorder()
	wrapped := domain.Wrap(domain.KindConflict, "order could not be committed, try again",
		errors.New("database is locked (5) (SQLITE_BUSY)"))
	WriteError(rec, req, log, wrapped)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order could not be committed, try again", body["error"])
	assert.Equal(t, string(domain.KindConflict), body["code"])
	assert.NotContains(t, rec.Body.String(), "SQLITE_BUSY")
}
