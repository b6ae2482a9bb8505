package orders

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

const transactionsColumns = `id, user_id, symbol, type, quantity, unit_price, amount, created_at`

// TransactionRepository handles the append-only transaction ledger. Rows
// are inserted by fills and never mutated or deleted.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// InsertTx records a transaction inside a transaction commit.
func (r *TransactionRepository) InsertTx(tx *sql.Tx, t domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, symbol, type, quantity, unit_price, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		t.ID,
		t.UserID,
		t.Symbol,
		string(t.Type),
		t.Quantity,
		domain.ToUnits(t.UnitPrice),
		domain.ToUnits(t.Amount),
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's transactions, most recent first.
func (r *TransactionRepository) ListByUser(userID string, limit int) ([]domain.Transaction, error) {
	query := "SELECT " + transactionsColumns + " FROM transactions WHERE user_id = ? ORDER BY created_at DESC"
	args := []interface{}{userID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var txType string
		var unitPrice, amount, createdAt int64

		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &txType, &t.Quantity, &unitPrice, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Type = domain.OrderType(txType)
		t.UnitPrice = domain.FromUnits(unitPrice)
		t.Amount = domain.FromUnits(amount)
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}
