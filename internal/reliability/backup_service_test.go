package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/ecowash/internal/database"
	"github.com/aristath/ecowash/internal/events"
	testutil "github.com/aristath/ecowash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistoryDB(t *testing.T) *database.DB {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	_, err := db.Conn().Exec(`INSERT INTO calculations (id, recipe, density, refraction, tolerance, outcome, result, created_at)
		VALUES ('calc-1', 'EcoWash - 1B', 0.8578, 1.474, 0.005, 'no_correction', x'80', 1767225600)`)
	require.NoError(t, err)
	return db
}

func extractArchive(t *testing.T, data []byte, dir string) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
		require.NoError(t, os.WriteFile(filepath.Join(dir, header.Name), content, 0o644))
	}
	return files
}

func TestBackupService_CreateAndUploadBackup(t *testing.T) {
	db := newHistoryDB(t)
	store := testutil.NewMockObjectStore()
	bus := events.NewBus(zerolog.Nop())
	var completed []*events.Event
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) { completed = append(completed, e) })

	service := NewBackupService(db, store, "/backups/", t.TempDir(), events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
	service.now = func() time.Time { return time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC) }

	info, err := service.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backups/ecowash-history-2026-03-04-020000.tar.gz", info.Key)
	assert.Positive(t, info.SizeBytes)

	data, contentType, ok := store.Object(info.Key)
	require.True(t, ok)
	assert.Equal(t, "application/gzip", contentType)

	dir := t.TempDir()
	files := extractArchive(t, data, dir)
	require.Contains(t, files, "history.db")
	require.Contains(t, files, metadataFile)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	assert.Equal(t, "history", metadata.Database.Name)
	assert.Equal(t, int64(len(files["history.db"])), metadata.Database.SizeBytes)
	assert.True(t, strings.HasPrefix(metadata.Database.Checksum, "sha256:"))

	restored, err := database.New(database.Config{Path: filepath.Join(dir, "history.db"), Profile: database.ProfileStandard, Name: "restored"})
	require.NoError(t, err)
	defer restored.Close()
	var count int
	require.NoError(t, restored.Conn().QueryRow("SELECT COUNT(*) FROM calculations").Scan(&count))
	assert.Equal(t, 1, count)

	require.Len(t, completed, 1)
	assert.Equal(t, info.Key, completed[0].Data["key"])
}

func TestBackupService_UploadFailure(t *testing.T) {
	db := newHistoryDB(t)
	store := testutil.NewMockObjectStore()
	store.SetError(errors.New("bucket unavailable"))
	bus := events.NewBus(zerolog.Nop())
	var failures []*events.Event
	bus.Subscribe(events.ErrorOccurred, func(e *events.Event) { failures = append(failures, e) })

	staging := t.TempDir()
	service := NewBackupService(db, store, "", staging, events.NewManager(bus, zerolog.Nop()), zerolog.Nop())

	_, err := service.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Len(t, failures, 1)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory must be cleaned up")
}

func TestBackupService_ListAndRotate(t *testing.T) {
	store := testutil.NewMockObjectStore()
	for _, stamp := range []string{
		"2026-01-01-020000",
		"2026-01-02-020000",
		"2026-02-20-020000",
		"2026-03-01-020000",
		"2026-03-02-020000",
		"2026-03-03-020000",
	} {
		store.Put("backups/ecowash-history-"+stamp+".tar.gz", []byte("x"))
	}
	store.Put("backups/ecowash-history-garbage.tar.gz", []byte("x"))
	store.Put("backups/unrelated.txt", []byte("x"))

	service := NewBackupService(nil, store, "backups", t.TempDir(), nil, zerolog.Nop())
	service.now = func() time.Time { return time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC) }

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 6)
	assert.Equal(t, "backups/ecowash-history-2026-03-03-020000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(24), backups[0].AgeHours)

	deleted, err := service.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	keys, err := store.List(context.Background(), "backups/ecowash-history-2026-01")
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, _, ok := store.Object("backups/ecowash-history-2026-02-20-020000.tar.gz")
	assert.True(t, ok)
}

func TestBackupService_RotateKeepsMinimum(t *testing.T) {
	store := testutil.NewMockObjectStore()
	for _, stamp := range []string{"2020-01-01-020000", "2020-01-02-020000", "2020-01-03-020000"} {
		store.Put("ecowash-history-"+stamp+".tar.gz", []byte("x"))
	}
	service := NewBackupService(nil, store, "", t.TempDir(), nil, zerolog.Nop())

	deleted, err := service.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = service.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
