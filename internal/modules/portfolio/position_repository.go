// Package portfolio holds positions, snapshots, and the read-side analytics
// built on them.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

const positionsColumns = `user_id, symbol, quantity, avg_buy_price, created_at, updated_at`

// PositionRepository handles position database operations. Positions exist
// iff quantity > 0; the order engine deletes a row when the last share is
// sold.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// GetByUser retrieves all of a user's positions in symbol order.
func (r *PositionRepository) GetByUser(userID string) ([]domain.Position, error) {
	query := "SELECT " + positionsColumns + " FROM positions WHERE user_id = ? ORDER BY symbol ASC"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPositionFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Get retrieves one position. Returns (nil, nil) when the user holds no
// shares of the symbol.
func (r *PositionRepository) Get(userID, symbol string) (*domain.Position, error) {
	query := "SELECT " + positionsColumns + " FROM positions WHERE user_id = ? AND symbol = ?"
	return r.getWith(r.db.QueryRow(query, userID, symbol))
}

// GetTx retrieves one position inside a transaction.
func (r *PositionRepository) GetTx(tx *sql.Tx, userID, symbol string) (*domain.Position, error) {
	query := "SELECT " + positionsColumns + " FROM positions WHERE user_id = ? AND symbol = ?"
	return r.getWith(tx.QueryRow(query, userID, symbol))
}

func (r *PositionRepository) getWith(row *sql.Row) (*domain.Position, error) {
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// InsertTx creates a position inside a transaction.
func (r *PositionRepository) InsertTx(tx *sql.Tx, p domain.Position) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO positions (user_id, symbol, quantity, avg_buy_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query, p.UserID, p.Symbol, p.Quantity, domain.ToUnits(p.AvgBuyPrice), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	return nil
}

// SetQuantityAvgTx rewrites a position's quantity and cost basis inside a
// transaction (BUY top-up path).
func (r *PositionRepository) SetQuantityAvgTx(tx *sql.Tx, userID, symbol string, quantity int64, avgBuyPrice int64) error {
	query := `
		UPDATE positions
		SET quantity = ?, avg_buy_price = ?, updated_at = ?
		WHERE user_id = ? AND symbol = ?
	`

	res, err := tx.Exec(query, quantity, avgBuyPrice, time.Now().Unix(), userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read position update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no position row for %s/%s", userID, symbol)
	}

	return nil
}

// ReduceQuantityTx decrements a position's quantity inside a transaction.
// The share guard is part of the UPDATE predicate; ok=false means the
// position holds fewer shares than requested. Never drives quantity to
// zero - full closes go through DeleteTx.
func (r *PositionRepository) ReduceQuantityTx(tx *sql.Tx, userID, symbol string, quantity int64) (bool, error) {
	query := `
		UPDATE positions
		SET quantity = quantity - ?, updated_at = ?
		WHERE user_id = ? AND symbol = ? AND quantity >= ?
	`

	res, err := tx.Exec(query, quantity, time.Now().Unix(), userID, symbol, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to reduce position: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read position reduce result: %w", err)
	}

	return affected == 1, nil
}

// DeleteTx removes a position row inside a transaction.
func (r *PositionRepository) DeleteTx(tx *sql.Tx, userID, symbol string) error {
	_, err := tx.Exec("DELETE FROM positions WHERE user_id = ? AND symbol = ?", userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// UserIDsWithPositions lists the users holding at least one position. The
// snapshot phase iterates exactly this set.
func (r *PositionRepository) UserIDsWithPositions() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM positions ORDER BY user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list position holders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position holders: %w", err)
	}

	return ids, nil
}

func scanPosition(row *sql.Row) (domain.Position, error) {
	var p domain.Position
	var avg, createdAt, updatedAt int64

	err := row.Scan(&p.UserID, &p.Symbol, &p.Quantity, &avg, &createdAt, &updatedAt)
	if err != nil {
		return domain.Position{}, err
	}

	p.AvgBuyPrice = domain.FromUnits(avg)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return p, nil
}

func scanPositionFromRows(rows *sql.Rows) (domain.Position, error) {
	var p domain.Position
	var avg, createdAt, updatedAt int64

	err := rows.Scan(&p.UserID, &p.Symbol, &p.Quantity, &avg, &createdAt, &updatedAt)
	if err != nil {
		return domain.Position{}, err
	}

	p.AvgBuyPrice = domain.FromUnits(avg)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return p, nil
}
