package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/domain"
)

// StockRefresher is the slice of the stocks service the refresh job uses.
type StockRefresher interface {
	StaleStocks(staleAfter time.Duration) ([]domain.Stock, error)
	RefreshStock(ctx context.Context, symbol string) (*domain.Stock, error)
	RemainingBudget() int
}

// PortfolioValuer computes a user's current market value.
type PortfolioValuer interface {
	MarketValue(userID string) (decimal.Decimal, error)
}

// SnapshotWriter persists end-of-day portfolio values.
type SnapshotWriter interface {
	Upsert(userID, date string, valueUnits int64) error
}

// PositionLister enumerates users that hold positions.
type PositionLister interface {
	UserIDsWithPositions() ([]string, error)
}

// RefreshJob is the scheduled price refresh pipeline. Each run refreshes
// stale quotes within the provider budget, then snapshots portfolio values
// once per day after the snapshot hour.
type RefreshJob struct {
	stocks       StockRefresher
	valuer       PortfolioValuer
	snapshots    SnapshotWriter
	positions    PositionLister
	staleAfter   time.Duration
	snapshotHour int
	log          zerolog.Logger

	lastSnapshotDate string
}

// NewRefreshJob creates the refresh pipeline job.
func NewRefreshJob(
	stocks StockRefresher,
	valuer PortfolioValuer,
	snapshots SnapshotWriter,
	positions PositionLister,
	staleAfter time.Duration,
	snapshotHour int,
	log zerolog.Logger,
) *RefreshJob {
	return &RefreshJob{
		stocks:       stocks,
		valuer:       valuer,
		snapshots:    snapshots,
		positions:    positions,
		staleAfter:   staleAfter,
		snapshotHour: snapshotHour,
		log:          log.With().Str("job", "refresh").Logger(),
	}
}

// Name implements Job.
func (j *RefreshJob) Name() string {
	return "price_refresh"
}

// Run implements Job. Per-stock failures are logged and counted but never
// abort the batch; an exhausted provider budget skips the remaining stocks
// rather than failing the run.
func (j *RefreshJob) Run() error {
	stale, err := j.stocks.StaleStocks(j.staleAfter)
	if err != nil {
		return err
	}

	refreshed, failed, skipped := 0, 0, 0
	ctx := context.Background()

	for _, stock := range stale {
		if j.stocks.RemainingBudget() <= 0 {
			skipped = len(stale) - refreshed - failed
			j.log.Warn().
				Int("skipped", skipped).
				Msg("Provider budget exhausted, deferring remaining stocks")
			break
		}

		if _, err := j.stocks.RefreshStock(ctx, stock.Symbol); err != nil {
			failed++
			j.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Stock refresh failed")
			continue
		}
		refreshed++
	}

	j.log.Info().
		Int("stale", len(stale)).
		Int("refreshed", refreshed).
		Int("failed", failed).
		Int("skipped", skipped).
		Msg("Refresh cycle complete")

	return j.maybeSnapshot(time.Now().UTC())
}

// maybeSnapshot records one portfolio value per user per day, on the first
// run at or after the snapshot hour.
func (j *RefreshJob) maybeSnapshot(now time.Time) error {
	if now.Hour() < j.snapshotHour {
		return nil
	}

	date := now.Format("2006-01-02")
	if date == j.lastSnapshotDate {
		return nil
	}

	userIDs, err := j.positions.UserIDsWithPositions()
	if err != nil {
		return err
	}

	written, failed := 0, 0
	for _, userID := range userIDs {
		value, err := j.valuer.MarketValue(userID)
		if err != nil {
			failed++
			j.log.Error().Err(err).Str("user_id", userID).Msg("Snapshot valuation failed")
			continue
		}
		if err := j.snapshots.Upsert(userID, date, domain.ToUnits(value)); err != nil {
			failed++
			j.log.Error().Err(err).Str("user_id", userID).Msg("Snapshot write failed")
			continue
		}
		written++
	}

	if failed == 0 {
		j.lastSnapshotDate = date
	}

	j.log.Info().
		Str("date", date).
		Int("written", written).
		Int("failed", failed).
		Msg("Portfolio snapshots recorded")

	return nil
}
