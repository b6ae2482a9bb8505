package stocks

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arlen/stockpilot/internal/domain"
)

const historyColumns = `symbol, timestamp, open, high, low, close, volume`

// HistoryRepository handles the append-only OHLCV price history.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new price history repository.
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "price_history").Logger(),
	}
}

// AppendTx appends one history point inside a transaction. A point that
// already exists for (symbol, timestamp) is left untouched; history rows are
// never rewritten.
func (r *HistoryRepository) AppendTx(tx *sql.Tx, p domain.PricePoint) error {
	query := `
		INSERT OR IGNORE INTO price_history (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		NormalizeSymbol(p.Symbol),
		p.Timestamp.Unix(),
		domain.ToUnits(p.Open),
		domain.ToUnits(p.High),
		domain.ToUnits(p.Low),
		domain.ToUnits(p.Close),
		p.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}

	return nil
}

// GetHistory retrieves history points for a symbol from a cutoff onward in
// ascending time order. limit <= 0 means no limit.
func (r *HistoryRepository) GetHistory(symbol string, from time.Time, limit int) ([]domain.PricePoint, error) {
	query := "SELECT " + historyColumns + ` FROM price_history
		WHERE symbol = ? AND timestamp >= ?
		ORDER BY timestamp ASC`
	args := []interface{}{NormalizeSymbol(symbol), from.Unix()}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// GetBetween retrieves history points within [from, to) in ascending order.
func (r *HistoryRepository) GetBetween(symbol string, from, to time.Time) ([]domain.PricePoint, error) {
	query := "SELECT " + historyColumns + ` FROM price_history
		WHERE symbol = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`

	rows, err := r.db.Query(query, NormalizeSymbol(symbol), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get price history range: %w", err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// LatestCloseBefore returns the latest close strictly before the cutoff, or
// (nil, nil) if no prior point exists. Drives the daily P/L previous-close
// lookup.
func (r *HistoryRepository) LatestCloseBefore(symbol string, cutoff time.Time) (*decimal.Decimal, error) {
	query := `
		SELECT close FROM price_history
		WHERE symbol = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var closeUnits int64
	err := r.db.QueryRow(query, NormalizeSymbol(symbol), cutoff.Unix()).Scan(&closeUnits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous close: %w", err)
	}

	close := domain.FromUnits(closeUnits)
	return &close, nil
}

func collectPoints(rows *sql.Rows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var ts, open, high, low, close int64

		if err := rows.Scan(&p.Symbol, &ts, &open, &high, &low, &close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		p.Open = domain.FromUnits(open)
		p.High = domain.FromUnits(high)
		p.Low = domain.FromUnits(low)
		p.Close = domain.FromUnits(close)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price points: %w", err)
	}

	return points, nil
}
