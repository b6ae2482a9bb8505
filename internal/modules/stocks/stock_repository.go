// Package stocks owns the stock catalog and its cached last-known quote.
// The quote columns are written only by the refresh pipeline; every other
// component is a reader.
package stocks

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// stocksColumns is the list of columns for the stocks table.
// Column order must match the scan helpers below.
const stocksColumns = `symbol, name, sector, current_price, change, change_pct, volume, last_updated_at`

// StockRepository handles stock database operations.
type StockRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStockRepository creates a new stock repository.
func NewStockRepository(db *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repo", "stocks").Logger(),
	}
}

// NormalizeSymbol canonicalizes a user-supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetBySymbol retrieves one stock. Returns (nil, nil) when the symbol does
// not exist.
func (r *StockRepository) GetBySymbol(symbol string) (*domain.Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks WHERE symbol = ?"

	row := r.db.QueryRow(query, NormalizeSymbol(symbol))
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock by symbol: %w", err)
	}

	return &stock, nil
}

// GetAll retrieves all stocks in stable symbol order.
func (r *StockRepository) GetAll() ([]domain.Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks ORDER BY symbol ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	defer rows.Close()

	return collectStocks(rows)
}

// GetStale retrieves stocks whose cached quote is older than the cutoff, in
// stable symbol order. The refresh pipeline iterates exactly this set.
func (r *StockRepository) GetStale(cutoff time.Time) ([]domain.Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks WHERE last_updated_at < ? ORDER BY symbol ASC"

	rows, err := r.db.Query(query, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get stale stocks: %w", err)
	}
	defer rows.Close()

	return collectStocks(rows)
}

// Create inserts a new stock with empty quote fields.
func (r *StockRepository) Create(stock domain.Stock) error {
	query := `
		INSERT INTO stocks (symbol, name, sector, current_price, change, change_pct, volume, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		NormalizeSymbol(stock.Symbol),
		stock.Name,
		stock.Sector,
		domain.ToUnits(stock.CurrentPrice),
		domain.ToUnits(stock.Change),
		domain.ToUnits(stock.ChangePercent),
		stock.Volume,
		stock.LastUpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stock: %w", err)
	}

	r.log.Info().Str("symbol", stock.Symbol).Msg("Stock created")
	return nil
}

// UpdateQuoteTx writes the cached quote fields inside a transaction. The
// pipeline pairs it with a history append so a stock is updated fully or not
// at all.
func (r *StockRepository) UpdateQuoteTx(tx *sql.Tx, stock domain.Stock) error {
	query := `
		UPDATE stocks
		SET current_price = ?, change = ?, change_pct = ?, volume = ?, last_updated_at = ?
		WHERE symbol = ?
	`

	res, err := tx.Exec(query,
		domain.ToUnits(stock.CurrentPrice),
		domain.ToUnits(stock.Change),
		domain.ToUnits(stock.ChangePercent),
		stock.Volume,
		stock.LastUpdatedAt.Unix(),
		NormalizeSymbol(stock.Symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read quote update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no stock row for symbol %s", stock.Symbol)
	}

	return nil
}

func scanStock(row *sql.Row) (domain.Stock, error) {
	var s domain.Stock
	var price, change, changePct, updatedAt int64

	err := row.Scan(&s.Symbol, &s.Name, &s.Sector, &price, &change, &changePct, &s.Volume, &updatedAt)
	if err != nil {
		return domain.Stock{}, err
	}

	s.CurrentPrice = domain.FromUnits(price)
	s.Change = domain.FromUnits(change)
	s.ChangePercent = domain.FromUnits(changePct)
	s.LastUpdatedAt = time.Unix(updatedAt, 0).UTC()
	return s, nil
}

func collectStocks(rows *sql.Rows) ([]domain.Stock, error) {
	var stocks []domain.Stock
	for rows.Next() {
		var s domain.Stock
		var price, change, changePct, updatedAt int64

		if err := rows.Scan(&s.Symbol, &s.Name, &s.Sector, &price, &change, &changePct, &s.Volume, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		s.CurrentPrice = domain.FromUnits(price)
		s.Change = domain.FromUnits(change)
		s.ChangePercent = domain.FromUnits(changePct)
		s.LastUpdatedAt = time.Unix(updatedAt, 0).UTC()
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}
