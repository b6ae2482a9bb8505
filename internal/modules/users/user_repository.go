// Package users owns account rows: balance, role, and the session lookups
// the API facade authenticates with. Balance mutations happen only through
// the order engine's commit or the payment credit contract.
package users

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

const usersColumns = `id, display_name, role, balance, created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB, log zerolog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log.With().Str("repo", "users").Logger(),
	}
}

// GetByID retrieves one user. Returns (nil, nil) when the user does not
// exist.
func (r *UserRepository) GetByID(id string) (*domain.User, error) {
	query := "SELECT " + usersColumns + " FROM users WHERE id = ?"

	row := r.db.QueryRow(query, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(user domain.User, email string) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO users (id, display_name, email, role, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		user.ID,
		user.DisplayName,
		email,
		string(user.Role),
		domain.ToUnits(user.Balance),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info().Str("user_id", user.ID).Msg("User created")
	return nil
}

// DebitBalanceTx decrements a user's balance inside a transaction. The
// non-negative guard is part of the UPDATE predicate, so a concurrent debit
// can never push the balance below zero; the caller sees ok=false when the
// guard rejects the debit.
func (r *UserRepository) DebitBalanceTx(tx *sql.Tx, userID string, units int64) (bool, error) {
	query := `
		UPDATE users
		SET balance = balance - ?, updated_at = ?
		WHERE id = ? AND balance >= ?
	`

	res, err := tx.Exec(query, units, time.Now().Unix(), userID, units)
	if err != nil {
		return false, fmt.Errorf("failed to debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read debit result: %w", err)
	}

	return affected == 1, nil
}

// CreditBalanceTx increments a user's balance inside a transaction.
func (r *UserRepository) CreditBalanceTx(tx *sql.Tx, userID string, units int64) error {
	query := `
		UPDATE users
		SET balance = balance + ?, updated_at = ?
		WHERE id = ?
	`

	res, err := tx.Exec(query, units, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read credit result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no user row for id %s", userID)
	}

	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var role string
	var balance, createdAt, updatedAt int64

	err := row.Scan(&u.ID, &u.DisplayName, &role, &balance, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, err
	}

	u.Role = domain.Role(role)
	u.Balance = domain.FromUnits(balance)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return u, nil
}
