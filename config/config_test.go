package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photodb.yaml")
	content := `database_path: /var/lib/photodb.sqlite
journal_path: /var/lib/photodb_records
opencage_key: abc123
quantize_precision: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/photodb.sqlite", cfg.DatabasePath)
	assert.Equal(t, "/var/lib/photodb_records", cfg.JournalPath)
	assert.Equal(t, "abc123", cfg.OpenCageKey)
	assert.Equal(t, 3, cfg.QuantizePrecision)

	// Fields absent from the file keep their defaults.
	assert.NotEmpty(t, cfg.GeocodeCachePath)
	assert.NotEmpty(t, cfg.ErrorLogPath)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default().QuantizePrecision, cfg.QuantizePrecision)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestLoadRejectsBadPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photodb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quantize_precision: -2\n"), 0644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.QuantizePrecision)
}
