package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileLedger,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/data/history.db", ProfileLedger)
	assert.Contains(t, ledger, "journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")

	assert.Contains(t, ledger, "auto_vacuum(NONE)")

	standard := buildConnectionString("/data/x.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
	assert.Contains(t, standard, "busy_timeout(5000)")
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "scratch.db"), Name: "scratch"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestMigrate_History(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	var name string
	err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='calculations'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "calculations", name)

	assert.Equal(t, "history", db.Name())
	assert.Equal(t, ProfileLedger, db.Profile())
}

func TestMigrate_UnknownName(t *testing.T) {
	db := newTestDB(t, "scratch")
	assert.NoError(t, db.Migrate())
}

func TestWALCheckpointAndHealth(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("passive"))
	assert.Error(t, db.WALCheckpoint("bogus"))
	assert.NoError(t, db.HealthCheck(context.Background()))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestSnapshot(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec(`INSERT INTO calculations (id, recipe, density, refraction, tolerance, outcome, result, created_at)
		VALUES ('a', 'EcoWash - 1B', 0.85, 1.47, 0.005, 'corrected', x'00', 1)`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.Snapshot(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	copyDB, err := New(Config{Path: dest, Name: "snapshot"})
	require.NoError(t, err)
	defer copyDB.Close()
	var count int
	require.NoError(t, copyDB.Conn().QueryRow("SELECT COUNT(*) FROM calculations").Scan(&count))
	assert.Equal(t, 1, count)
}
