package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/clients/marketdata"
	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/stocks"
	testutil "github.com/arlen/stockpilot/internal/testing"
)

type noopProvider struct{}

func (noopProvider) GetQuote(context.Context, string) (*marketdata.Quote, error) {
	return nil, errors.New("not wired")
}

func (noopProvider) GetRemainingRequests() int { return 0 }

func TestRegisterRoutes(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	service := stocks.NewService(
		conn,
		stocks.NewStockRepository(conn, log),
		stocks.NewHistoryRepository(conn, log),
		noopProvider{},
		log,
	)

	_, err := conn.Exec(
		`INSERT INTO stocks (symbol, name, current_price, last_updated_at)
		 VALUES ('AAPL', 'Apple Inc', 1500000, ?)`,
		time.Now().Unix(),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := api.WithPrincipal(req.Context(), api.Principal{UserID: "u1", Role: domain.RoleUser})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(service, log).RegisterRoutes(r, log)

	paths := []string{
		"/stocks",
		"/stocks/AAPL",
		"/stocks/symbol/AAPL/history?range=1M",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// The forced refresh stays behind the admin gate.
	req := httptest.NewRequest(http.MethodPost, "/stocks/refresh/AAPL", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
