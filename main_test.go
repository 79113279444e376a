package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photodb/config"
	"photodb/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabasePath:      filepath.Join(dir, "photo.sqlite"),
		JournalPath:       filepath.Join(dir, "journal.jsonl"),
		GeocodeCachePath:  filepath.Join(dir, "geocode.json"),
		QuantizePrecision: 4,
	}
}

func initTestDB(t *testing.T, cfg *config.Config) {
	t.Helper()
	db, err := database.Open(cfg.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, database.InitSchema(db))
	require.NoError(t, db.Close())
}

func TestHandleScanReportsMissingFolder(t *testing.T) {
	err := handleScan(context.Background(), testConfig(t), map[string]string{}, false)
	require.Error(t, err)
}

func TestHandleScanSavesCacheOnAbort(t *testing.T) {
	cfg := testConfig(t)
	initTestDB(t, cfg)

	photoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(photoDir, "a.jpg"), []byte("jpeg bytes"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handleScan(ctx, cfg, map[string]string{"folder": photoDir}, false)
	require.Error(t, err)

	// An aborted run must still persist the geocode cache, or the next
	// run re-spends quota on keys already paid for.
	_, statErr := os.Stat(cfg.GeocodeCachePath)
	assert.NoError(t, statErr)
}

func TestHandleAddSavesCacheOnFailure(t *testing.T) {
	cfg := testConfig(t)
	initTestDB(t, cfg)

	// A journal path nested under a regular file cannot be created, so
	// the add fails after the pipeline is built.
	blocker := filepath.Join(filepath.Dir(cfg.JournalPath), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
	cfg.JournalPath = filepath.Join(blocker, "journal.jsonl")

	photoDir := t.TempDir()
	path := filepath.Join(photoDir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0644))

	err := handleAdd(context.Background(), cfg, map[string]string{"picture": path}, false)
	require.Error(t, err)

	_, statErr := os.Stat(cfg.GeocodeCachePath)
	assert.NoError(t, statErr)
}
