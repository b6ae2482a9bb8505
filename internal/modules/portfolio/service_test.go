package portfolio

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlen/stockpilot/internal/modules/stocks"
	testutil "github.com/arlen/stockpilot/internal/testing"
)

func newTestService(t *testing.T) (*Service, *sql.DB, func()) {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t)
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	service := NewService(
		NewPositionRepository(conn, log),
		NewSnapshotRepository(conn, log),
		stocks.NewStockRepository(conn, log),
		stocks.NewHistoryRepository(conn, log),
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

func seedStock(t *testing.T, conn *sql.DB, symbol string, priceUnits int64) {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO stocks (symbol, name, current_price, last_updated_at) VALUES (?, ?, ?, ?)`,
		symbol, symbol+" Inc", priceUnits, time.Now().Unix(),
	)
	require.NoError(t, err)
}

func seedPosition(t *testing.T, conn *sql.DB, userID, symbol string, quantity, avgUnits int64) {
	t.Helper()
	now := time.Now().Unix()
	_, err := conn.Exec(
		`INSERT INTO positions (user_id, symbol, quantity, avg_buy_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, symbol, quantity, avgUnits, now, now,
	)
	require.NoError(t, err)
}

func seedClose(t *testing.T, conn *sql.DB, symbol string, ts time.Time, closeUnits int64) {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO price_history (symbol, timestamp, open, high, low, close)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		symbol, ts.Unix(), closeUnits, closeUnits, closeUnits, closeUnits,
	)
	require.NoError(t, err)
}

func TestGetSummary(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000) // 200.00
	seedStock(t, conn, "MSFT", 500_000)   // 50.00
	seedPosition(t, conn, "u1", "AAPL", 2, 1_500_000) // bought at 150.00
	seedPosition(t, conn, "u1", "MSFT", 4, 1_000_000) // bought at 100.00

	// Yesterday's closes drive the daily move.
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	seedClose(t, conn, "AAPL", yesterday, 1_900_000) // 190.00
	seedClose(t, conn, "MSFT", yesterday, 600_000)   // 60.00

	summary, err := service.GetSummary("u1")
	require.NoError(t, err)

	// AAPL: 2 * 200 = 400, MSFT: 4 * 50 = 200.
	assert.True(t, summary.TotalPortfolioValue.Equal(decimal.NewFromInt(600)),
		"value: %s", summary.TotalPortfolioValue)
	// Invested: 2 * 150 + 4 * 100 = 700.
	assert.True(t, summary.TotalInvested.Equal(decimal.NewFromInt(700)))
	assert.True(t, summary.TotalProfitLoss.Equal(decimal.NewFromInt(-100)))
	// -100 / 700 = -14.29% rounded half-even to 2 decimals.
	assert.Equal(t, "-14.29", summary.TotalProfitLossPct.StringFixed(2))
	// Daily: AAPL 2*(200-190)=20, MSFT 4*(50-60)=-40.
	assert.True(t, summary.DailyProfitLoss.Equal(decimal.NewFromInt(-20)),
		"daily: %s", summary.DailyProfitLoss)

	require.NotNil(t, summary.BestPerformingStock)
	require.NotNil(t, summary.WorstPerformingStock)
	assert.Equal(t, "AAPL", summary.BestPerformingStock.Symbol)  // +100
	assert.Equal(t, "MSFT", summary.WorstPerformingStock.Symbol) // -200
}

func TestGetSummary_WorstTieBreaksOnValueThenSymbol(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	// Both positions lose exactly 10.00; AAA holds the larger value.
	seedStock(t, conn, "AAA", 1_000_000) // 100.00
	seedStock(t, conn, "BBB", 250_000)   // 25.00
	seedPosition(t, conn, "u1", "AAA", 1, 1_100_000) // avg 110.00, value 100
	seedPosition(t, conn, "u1", "BBB", 2, 300_000)   // avg 30.00, value 50

	summary, err := service.GetSummary("u1")
	require.NoError(t, err)

	require.NotNil(t, summary.WorstPerformingStock)
	assert.Equal(t, "AAA", summary.WorstPerformingStock.Symbol)
	require.NotNil(t, summary.BestPerformingStock)
	assert.Equal(t, "AAA", summary.BestPerformingStock.Symbol)
}

func TestGetSummary_EmptyPortfolio(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")

	summary, err := service.GetSummary("u1")
	require.NoError(t, err)

	assert.True(t, summary.TotalPortfolioValue.IsZero())
	assert.True(t, summary.TotalInvested.IsZero())
	assert.True(t, summary.TotalProfitLossPct.IsZero())
	assert.Nil(t, summary.BestPerformingStock)
	assert.Nil(t, summary.WorstPerformingStock)
}

func TestGetSummary_NoPreviousCloseContributesZeroDaily(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000)
	seedPosition(t, conn, "u1", "AAPL", 2, 1_500_000)

	summary, err := service.GetSummary("u1")
	require.NoError(t, err)
	assert.True(t, summary.DailyProfitLoss.IsZero(), "daily: %s", summary.DailyProfitLoss)
}

func TestDistribution(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000)
	seedStock(t, conn, "MSFT", 500_000)
	seedStock(t, conn, "NOPR", 0) // never priced
	seedPosition(t, conn, "u1", "AAPL", 3, 1_000_000) // 600
	seedPosition(t, conn, "u1", "MSFT", 4, 1_000_000) // 200
	seedPosition(t, conn, "u1", "NOPR", 5, 1_000_000) // 0

	entries, err := service.Distribution("u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	bySymbol := map[string]DistributionEntry{}
	for _, e := range entries {
		bySymbol[e.Symbol] = e
	}

	assert.True(t, bySymbol["AAPL"].Value.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "75", bySymbol["AAPL"].Percentage.String())
	assert.Equal(t, "25", bySymbol["MSFT"].Percentage.String())
	// Zero-priced positions stay in the list at zero weight.
	assert.True(t, bySymbol["NOPR"].Value.IsZero())
	assert.True(t, bySymbol["NOPR"].Percentage.IsZero())
}

func TestDistribution_ZeroTotal(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "NOPR", 0)
	seedPosition(t, conn, "u1", "NOPR", 5, 1_000_000)

	entries, err := service.Distribution("u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Percentage.IsZero())
}

func TestGrowth_FromSnapshots(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")

	snapshotRepo := service.snapshotRepo
	today := time.Now().UTC()
	require.NoError(t, snapshotRepo.Upsert("u1", today.AddDate(0, 0, -3).Format("2006-01-02"), 5_000_000))
	// Day -2 has no snapshot; the series just omits it.
	require.NoError(t, snapshotRepo.Upsert("u1", today.AddDate(0, 0, -1).Format("2006-01-02"), 6_000_000))

	points, err := service.Growth("u1", "1W")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Value.Equal(decimal.NewFromInt(500)))
	assert.True(t, points[1].Value.Equal(decimal.NewFromInt(600)))
	assert.True(t, points[0].Date < points[1].Date)

	// Outside the window.
	points, err = service.Growth("u1", "ALL")
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = service.Growth("u1", "2W")
	require.Error(t, err)
}

func TestGrowth_IntradayWalksHistory(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000)
	seedStock(t, conn, "MSFT", 500_000)
	seedPosition(t, conn, "u1", "AAPL", 2, 1_500_000)
	seedPosition(t, conn, "u1", "MSFT", 4, 1_000_000)

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Previous close only for AAPL; MSFT falls back to its current price
	// until its first point of the day.
	seedClose(t, conn, "AAPL", dayStart.Add(-2*time.Hour), 1_800_000)
	seedClose(t, conn, "AAPL", now.Add(-3*time.Minute), 1_900_000)
	seedClose(t, conn, "MSFT", now.Add(-2*time.Minute), 600_000)
	seedClose(t, conn, "AAPL", now.Add(-1*time.Minute), 2_000_000)

	points, err := service.Growth("u1", "1D")
	require.NoError(t, err)
	require.Len(t, points, 3)

	// t1: AAPL 2*190 + MSFT carry 4*50 = 580.
	assert.True(t, points[0].Value.Equal(decimal.NewFromInt(580)), "t1: %s", points[0].Value)
	// t2: AAPL carry 2*190 + MSFT 4*60 = 620.
	assert.True(t, points[1].Value.Equal(decimal.NewFromInt(620)), "t2: %s", points[1].Value)
	// t3: AAPL 2*200 + MSFT 4*60 = 640.
	assert.True(t, points[2].Value.Equal(decimal.NewFromInt(640)), "t3: %s", points[2].Value)
}

func TestMarketValue(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000)
	seedPosition(t, conn, "u1", "AAPL", 3, 1_000_000)

	value, err := service.MarketValue("u1")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(600)))

	seedUser(t, conn, "u2")
	value, err = service.MarketValue("u2")
	require.NoError(t, err)
	assert.True(t, value.IsZero())
}

func TestPositions_JoinsQuotes(t *testing.T) {
	service, conn, cleanup := newTestService(t)
	defer cleanup()

	seedUser(t, conn, "u1")
	seedStock(t, conn, "AAPL", 2_000_000)
	seedPosition(t, conn, "u1", "AAPL", 2, 1_500_000)

	views, err := service.Positions("u1")
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, "AAPL", view.Symbol)
	assert.Equal(t, "AAPL Inc", view.Name)
	assert.True(t, view.Value.Equal(decimal.NewFromInt(400)))
	assert.True(t, view.ProfitLoss.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "33.33", view.ProfitLossPercent.StringFixed(2))
}
