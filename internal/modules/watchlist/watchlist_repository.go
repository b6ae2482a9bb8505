package watchlist

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// WatchlistRepository handles database operations for watchlist entries.
type WatchlistRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewWatchlistRepository creates a new watchlist repository.
func NewWatchlistRepository(db *sql.DB, log zerolog.Logger) *WatchlistRepository {
	return &WatchlistRepository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// GetSymbols returns the user's watched symbols in alphabetical order.
func (r *WatchlistRepository) GetSymbols(userID string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT symbol FROM watchlists WHERE user_id = ? ORDER BY symbol ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// Contains reports whether the symbol is already on the user's watchlist.
func (r *WatchlistRepository) Contains(userID, symbol string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM watchlists WHERE user_id = ? AND symbol = ?`,
		userID, symbol,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist entry: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of entries on the user's watchlist.
func (r *WatchlistRepository) Count(userID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM watchlists WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count watchlist: %w", err)
	}
	return n, nil
}

// Add inserts a watchlist entry. Returns false when the symbol is already
// watched (the primary key rejects the duplicate).
func (r *WatchlistRepository) Add(userID, symbol string) (bool, error) {
	result, err := r.db.Exec(
		`INSERT OR IGNORE INTO watchlists (user_id, symbol, created_at) VALUES (?, ?, ?)`,
		userID, symbol, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist insert: %w", err)
	}
	return affected > 0, nil
}

// Remove deletes a watchlist entry. Removing an absent symbol is a no-op.
func (r *WatchlistRepository) Remove(userID, symbol string) error {
	_, err := r.db.Exec(
		`DELETE FROM watchlists WHERE user_id = ? AND symbol = ?`,
		userID, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}
