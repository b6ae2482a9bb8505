package users

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlen/stockpilot/internal/domain"
	testutil "github.com/arlen/stockpilot/internal/testing"
)

func TestBootstrapDev(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	userRepo := NewUserRepository(conn, log)
	sessionRepo := NewSessionRepository(conn, log)

	require.NoError(t, BootstrapDev(userRepo, sessionRepo, log))

	user, err := userRepo.GetByID("dev")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(10000)))

	// The fixed token resolves to a live session.
	session, err := sessionRepo.Lookup(DevToken)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "dev", session.UserID)

	// Rerunning against an initialized database is a no-op.
	require.NoError(t, BootstrapDev(userRepo, sessionRepo, log))
	var sessions int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&sessions))
	assert.Equal(t, 1, sessions)
}

func TestSessionSweepJob(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	sessionRepo := NewSessionRepository(conn, log)

	seedUser(t, conn, "u1", 0)
	require.NoError(t, sessionRepo.Create("live-token", "u1", time.Now().Add(time.Hour)))
	require.NoError(t, sessionRepo.Create("dead-token", "u1", time.Now().Add(-time.Hour)))

	job := NewSessionSweepJob(sessionRepo, log)
	assert.Equal(t, "session-sweep", job.Name())
	require.NoError(t, job.Run())

	var remaining int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&remaining))
	assert.Equal(t, 1, remaining)

	session, err := sessionRepo.Lookup("live-token")
	require.NoError(t, err)
	require.NotNil(t, session)
}
