package exifmeta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photodb/types"
)

func TestIsPhotoFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/photos/a.jpg", true},
		{"/photos/a.JPEG", true},
		{"/photos/a.heic", true},
		{"/photos/a.tiff", true},
		{"/photos/raw.CR2", true},
		{"/photos/raw.arw", true},
		{"/photos/clip.mp4", false},
		{"/photos/notes.txt", false},
		{"/photos/noext", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPhotoFile(tt.path), tt.path)
	}
}

func TestIsRawFormat(t *testing.T) {
	assert.True(t, IsRawFormat("/photos/a.NEF"))
	assert.True(t, IsRawFormat("/photos/a.dng"))
	assert.False(t, IsRawFormat("/photos/a.jpg"))
}

func TestExtractUnreadableFile(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestExtractFileWithoutMetadata(t *testing.T) {
	// A file that is not a decodable JPEG degrades to filesystem times,
	// it does not fail.
	path := filepath.Join(t.TempDir(), "junk.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not actually a jpeg"), 0644))

	mtime := time.Date(2023, 7, 14, 12, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	e := &Extractor{}
	meta, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFilesystem, meta.SourceQuality)
	assert.True(t, mtime.Equal(meta.CapturedAt))
	assert.Nil(t, meta.Coordinates)
}

func TestExtractRawWithoutExiftool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.nef")
	require.NoError(t, os.WriteFile(path, []byte("raw bytes"), 0644))

	mtime := time.Date(2022, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	e := &Extractor{} // no exiftool process
	meta, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFilesystem, meta.SourceQuality)
	assert.True(t, mtime.Equal(meta.CapturedAt))
	assert.Nil(t, meta.Coordinates)
}
