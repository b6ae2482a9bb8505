// Package orders is the order engine: the single authority that mutates
// balances, positions, orders, and transactions.
package orders

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

const ordersColumns = `id, user_id, symbol, type, quantity, price, status, created_at`

// OrderRepository handles order database operations.
type OrderRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *sql.DB, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "orders").Logger(),
	}
}

// InsertTx records an order inside a transaction.
func (r *OrderRepository) InsertTx(tx *sql.Tx, o domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, symbol, type, quantity, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		o.ID,
		o.UserID,
		o.Symbol,
		string(o.Type),
		o.Quantity,
		domain.ToUnits(o.Price),
		string(o.Status),
		o.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID retrieves one order scoped to its owner. Returns (nil, nil) when
// no such order exists for the user.
func (r *OrderRepository) GetByID(orderID, userID string) (*domain.Order, error) {
	query := "SELECT " + ordersColumns + " FROM orders WHERE id = ? AND user_id = ?"

	row := r.db.QueryRow(query, orderID, userID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// ListByUser retrieves a user's orders, most recent first, with optional
// status and type filters.
func (r *OrderRepository) ListByUser(userID string, status, orderType string, limit int) ([]domain.Order, error) {
	query := "SELECT " + ordersColumns + " FROM orders WHERE user_id = ?"
	args := []interface{}{userID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if orderType != "" {
		query += " AND type = ?"
		args = append(args, orderType)
	}

	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var orderTypeStr, statusStr string
		var price, createdAt int64

		if err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &orderTypeStr, &o.Quantity, &price, &statusStr, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Type = domain.OrderType(orderTypeStr)
		o.Status = domain.OrderStatus(statusStr)
		o.Price = domain.FromUnits(price)
		o.CreatedAt = time.UnixMilli(createdAt).UTC()
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// CancelPending flips a PENDING order to CANCELLED. The state guard is part
// of the UPDATE predicate; ok=false means the order was not in PENDING (or
// does not belong to the user).
func (r *OrderRepository) CancelPending(orderID, userID string) (bool, error) {
	query := `
		UPDATE orders SET status = ?
		WHERE id = ? AND user_id = ? AND status = ?
	`

	res, err := r.db.Exec(query, string(domain.OrderCancelled), orderID, userID, string(domain.OrderPending))
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read cancel result: %w", err)
	}

	return affected == 1, nil
}

func scanOrder(row *sql.Row) (domain.Order, error) {
	var o domain.Order
	var orderType, status string
	var price, createdAt int64

	err := row.Scan(&o.ID, &o.UserID, &o.Symbol, &orderType, &o.Quantity, &price, &status, &createdAt)
	if err != nil {
		return domain.Order{}, err
	}

	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	o.Price = domain.FromUnits(price)
	o.CreatedAt = time.UnixMilli(createdAt).UTC()
	return o, nil
}
