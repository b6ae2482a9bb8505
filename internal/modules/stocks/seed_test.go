package stocks

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/arlen/stockpilot/internal/testing"
)

func TestSeedCatalog(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewStockRepository(conn, log)

	require.NoError(t, SeedCatalog(repo, log))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, len(defaultCatalog))

	// Seeded rows start priceless and maximally stale so the refresh
	// pipeline picks them up on its first pass.
	stale, err := repo.GetStale(time.Now())
	require.NoError(t, err)
	assert.Len(t, stale, len(defaultCatalog))
	for _, s := range all {
		assert.False(t, s.HasPrice(), s.Symbol)
	}

	// A second run leaves the table alone.
	require.NoError(t, SeedCatalog(repo, log))
	all, err = repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, len(defaultCatalog))
}

func TestSeedCatalog_SkipsNonEmptyTable(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewStockRepository(conn, log)

	_, err := conn.Exec(
		`INSERT INTO stocks (symbol, name, current_price, last_updated_at) VALUES ('ZZZ', 'Custom', 1000000, ?)`,
		time.Now().Unix(),
	)
	require.NoError(t, err)

	require.NoError(t, SeedCatalog(repo, log))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
