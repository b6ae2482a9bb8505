package users

import (
	"github.com/rs/zerolog"
)

// SessionSweepJob prunes expired sessions on a schedule. Expired sessions
// already fail lookup; the sweep just keeps the table from growing.
type SessionSweepJob struct {
	sessions *SessionRepository
	log      zerolog.Logger
}

// NewSessionSweepJob creates the session sweep job.
func NewSessionSweepJob(sessions *SessionRepository, log zerolog.Logger) *SessionSweepJob {
	return &SessionSweepJob{
		sessions: sessions,
		log:      log.With().Str("job", "session_sweep").Logger(),
	}
}

func (j *SessionSweepJob) Name() string { return "session-sweep" }

func (j *SessionSweepJob) Run() error {
	return j.sessions.DeleteExpired()
}
