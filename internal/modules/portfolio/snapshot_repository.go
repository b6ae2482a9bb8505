package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// SnapshotRepository handles per-user daily portfolio value snapshots.
// One row per (user, UTC day); re-running the end-of-day phase refreshes
// the day's value instead of duplicating it.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert writes the snapshot for (userID, date), replacing the value if the
// day already has one.
func (r *SnapshotRepository) Upsert(userID, date string, valueUnits int64) error {
	query := `
		INSERT INTO portfolio_snapshots (id, user_id, date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET value = excluded.value
	`

	_, err := r.db.Exec(query, uuid.New().String(), userID, date, valueUnits)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetSince retrieves a user's snapshots from a date (inclusive, YYYY-MM-DD)
// onward in ascending date order. An empty fromDate returns all snapshots.
func (r *SnapshotRepository) GetSince(userID, fromDate string) ([]domain.PortfolioSnapshot, error) {
	query := `
		SELECT id, user_id, date, value FROM portfolio_snapshots
		WHERE user_id = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, userID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.PortfolioSnapshot
	for rows.Next() {
		var s domain.PortfolioSnapshot
		var value int64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Value = domain.FromUnits(value)
		snaps = append(snaps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}
