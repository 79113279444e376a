// Package exifmeta normalizes embedded photo metadata into the pipeline's
// data model. JPEG-family files are decoded in-process; RAW containers go
// through exiftool when the binary is available. Files without embedded
// tags degrade to filesystem timestamps rather than failing.
package exifmeta

import (
	"fmt"
	"os"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"

	"photodb/logging"
	"photodb/types"
)

// Metadata is the extractor's normalized output for one file.
type Metadata struct {
	CapturedAt    time.Time
	Coordinates   *types.Coordinates
	SourceQuality types.SourceQuality
}

// exiftool prints DateTimeOriginal in this layout.
const exiftoolTimeLayout = "2006:01:02 15:04:05"

// Extractor reads capture timestamps and GPS fixes from photo files.
type Extractor struct {
	et *exiftool.Exiftool
}

// New creates an extractor. When the exiftool binary cannot be started,
// RAW files get filesystem timestamps only; everything else is unaffected.
func New() *Extractor {
	et, err := exiftool.NewExiftool(exiftool.NoPrintConversion())
	if err != nil {
		logging.Warning("exiftool unavailable, RAW metadata limited to file times: %v", err)
		et = nil
	}
	return &Extractor{et: et}
}

// Close releases the exiftool process, if one was started.
func (e *Extractor) Close() {
	if e.et != nil {
		e.et.Close()
	}
}

// Extract reads metadata for the file at path. A non-nil error means the
// file itself is unreadable; absent or malformed metadata is not an error
// and yields the filesystem-fallback timestamp with no coordinates.
func (e *Extractor) Extract(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("cannot stat file %s: %v", path, err)
	}

	fallback := Metadata{
		CapturedAt:    info.ModTime(),
		SourceQuality: types.SourceFilesystem,
	}

	if IsRawFormat(path) {
		if e.et == nil {
			return fallback, nil
		}
		return e.extractWithExiftool(path, fallback), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("cannot open file %s: %v", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF segment. Degraded-precision path, not a failure.
		logging.Debug("no EXIF data in %s: %v", path, err)
		return fallback, nil
	}

	meta := fallback
	if taken, err := x.DateTime(); err == nil {
		meta.CapturedAt = taken
		meta.SourceQuality = types.SourceEmbedded
	}

	if lat, long, err := x.LatLong(); err == nil {
		coords := types.Coordinates{Latitude: lat, Longitude: long}
		if coords.Valid() {
			meta.Coordinates = &coords
		} else {
			logging.Debug("ignoring implausible GPS fix %s in %s", coords, path)
		}
	}

	return meta, nil
}

// extractWithExiftool pulls metadata out of RAW containers. Any exiftool
// hiccup degrades to the filesystem fallback instead of failing the file.
func (e *Extractor) extractWithExiftool(path string, fallback Metadata) Metadata {
	metas := e.et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		if len(metas) > 0 {
			logging.Debug("exiftool failed on %s: %v", path, metas[0].Err)
		}
		return fallback
	}

	fm := metas[0]
	meta := fallback

	if s, err := fm.GetString("DateTimeOriginal"); err == nil {
		if taken, perr := time.ParseInLocation(exiftoolTimeLayout, s, time.Local); perr == nil {
			meta.CapturedAt = taken
			meta.SourceQuality = types.SourceEmbedded
		}
	}

	lat, latErr := fm.GetFloat("GPSLatitude")
	long, longErr := fm.GetFloat("GPSLongitude")
	if latErr == nil && longErr == nil {
		coords := types.Coordinates{Latitude: lat, Longitude: long}
		if coords.Valid() {
			meta.Coordinates = &coords
		}
	}

	return meta
}
