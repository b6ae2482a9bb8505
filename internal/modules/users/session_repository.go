package users

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// Session resolves a bearer token to an authenticated principal. Tokens are
// stored hashed; issuance belongs to the auth collaborator, this repository
// only consumes them.
type Session struct {
	UserID    string
	Role      domain.Role
	ExpiresAt time.Time
}

// SessionRepository handles session database operations.
type SessionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, log zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log.With().Str("repo", "sessions").Logger(),
	}
}

// HashToken derives the storage key for a raw bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Lookup resolves a raw token to its session. Returns (nil, nil) for an
// unknown or expired token.
func (r *SessionRepository) Lookup(token string) (*Session, error) {
	query := `
		SELECT s.user_id, u.role, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`

	var s Session
	var role string
	var expiresAt int64
	err := r.db.QueryRow(query, HashToken(token)).Scan(&s.UserID, &role, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	s.Role = domain.Role(role)
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}

	return &s, nil
}

// Create stores a session for a raw token.
func (r *SessionRepository) Create(token, userID string, expiresAt time.Time) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, HashToken(token), userID, expiresAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions past their expiry.
func (r *SessionRepository) DeleteExpired() error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
