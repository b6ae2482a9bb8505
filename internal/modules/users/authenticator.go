package users

import (
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
)

// SessionAuthenticator resolves bearer tokens against the sessions table.
type SessionAuthenticator struct {
	sessionRepo *SessionRepository
	log         zerolog.Logger
}

// NewSessionAuthenticator creates a session-backed authenticator.
func NewSessionAuthenticator(sessionRepo *SessionRepository, log zerolog.Logger) *SessionAuthenticator {
	return &SessionAuthenticator{
		sessionRepo: sessionRepo,
		log:         log.With().Str("component", "authenticator").Logger(),
	}
}

// Authenticate implements api.Authenticator.
func (a *SessionAuthenticator) Authenticate(token string) (*api.Principal, error) {
	session, err := a.sessionRepo.Lookup(token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return &api.Principal{UserID: session.UserID, Role: session.Role}, nil
}
