package watchlist

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlen/stockpilot/internal/domain"
	"github.com/arlen/stockpilot/internal/modules/stocks"
	testutil "github.com/arlen/stockpilot/internal/testing"
)

func newTestService(t *testing.T, cap int) (*Service, *sql.DB, func()) {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t)
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	service := NewService(
		NewWatchlistRepository(conn, log),
		stocks.NewStockRepository(conn, log),
		cap,
		log,
	)
	return service, conn, cleanup
}

func seedUser(t *testing.T, conn *sql.DB, id string) {
	t.Helper()
	now := time.Now().Unix()
	_, err := conn.Exec(
		`INSERT INTO users (id, display_name, email, balance, created_at, updated_at)
		 VALUES (?, 'Test User', ?, 0, ?, ?)`,
		id, id+"@example.com", now, now,
	)
	require.NoError(t, err)
}

func seedStock(t *testing.T, conn *sql.DB, symbol string) {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO stocks (symbol, name, current_price, last_updated_at) VALUES (?, ?, 1000000, ?)`,
		symbol, symbol+" Inc", time.Now().Unix(),
	)
	require.NoError(t, err)
}

func TestAddAndGet(t *testing.T) {
	service, conn, cleanup := newTestService(t, 20)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "MSFT")
	seedStock(t, conn, "AAPL")

	watched, err := service.Add("u1", "msft")
	require.NoError(t, err)
	require.Len(t, watched, 1)
	assert.Equal(t, "MSFT", watched[0].Symbol)

	watched, err = service.Add("u1", "AAPL")
	require.NoError(t, err)
	require.Len(t, watched, 2)
	assert.Equal(t, "AAPL", watched[0].Symbol)
	assert.Equal(t, "MSFT", watched[1].Symbol)
}

func TestAdd_UnknownSymbol(t *testing.T) {
	service, conn, cleanup := newTestService(t, 20)
	defer cleanup()

	seedUser(t, conn, "u1")

	_, err := service.Add("u1", "NOPE")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknownSymbol, domain.KindOf(err))
}

func TestAdd_Duplicate(t *testing.T) {
	service, conn, cleanup := newTestService(t, 20)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL")

	_, err := service.Add("u1", "AAPL")
	require.NoError(t, err)

	_, err = service.Add("u1", "AAPL")
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicate, domain.KindOf(err))
}

func TestAdd_Capacity(t *testing.T) {
	service, conn, cleanup := newTestService(t, 2)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAA")
	seedStock(t, conn, "BBB")
	seedStock(t, conn, "CCC")

	_, err := service.Add("u1", "AAA")
	require.NoError(t, err)
	_, err = service.Add("u1", "BBB")
	require.NoError(t, err)

	_, err = service.Add("u1", "CCC")
	require.Error(t, err)
	assert.Equal(t, domain.KindCapacity, domain.KindOf(err))

	// Making room admits the blocked symbol.
	_, err = service.Remove("u1", "AAA")
	require.NoError(t, err)
	watched, err := service.Add("u1", "CCC")
	require.NoError(t, err)
	assert.Len(t, watched, 2)
}

func TestAdd_DuplicateOnFullList(t *testing.T) {
	service, conn, cleanup := newTestService(t, 2)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAA")
	seedStock(t, conn, "BBB")

	_, err := service.Add("u1", "AAA")
	require.NoError(t, err)
	_, err = service.Add("u1", "BBB")
	require.NoError(t, err)

	// Re-adding a watched symbol on a full list is a duplicate, not a
	// capacity failure.
	_, err = service.Add("u1", "AAA")
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicate, domain.KindOf(err))
}

func TestRemove_Idempotent(t *testing.T) {
	service, conn, cleanup := newTestService(t, 20)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL")

	_, err := service.Add("u1", "AAPL")
	require.NoError(t, err)

	watched, err := service.Remove("u1", "AAPL")
	require.NoError(t, err)
	assert.Empty(t, watched)

	// Removing an absent symbol still succeeds.
	watched, err = service.Remove("u1", "AAPL")
	require.NoError(t, err)
	assert.Empty(t, watched)
}

func TestWatchlistsAreIsolatedPerUser(t *testing.T) {
	service, conn, cleanup := newTestService(t, 20)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedUser(t, conn, "u2")
	seedStock(t, conn, "AAPL")

	_, err := service.Add("u1", "AAPL")
	require.NoError(t, err)
	_, err = service.Add("u2", "AAPL")
	require.NoError(t, err)

	_, err = service.Remove("u1", "AAPL")
	require.NoError(t, err)

	watched, err := service.Get("u2")
	require.NoError(t, err)
	assert.Len(t, watched, 1)
}
