package types

import (
	"fmt"
	"time"
)

// SourceQuality marks the provenance of a record's capture timestamp.
type SourceQuality string

const (
	// SourceEmbedded means the timestamp was mined from embedded EXIF metadata.
	SourceEmbedded SourceQuality = "embedded-metadata"
	// SourceFilesystem means the timestamp fell back to the file's
	// modification time because no embedded tag was present.
	SourceFilesystem SourceQuality = "filesystem-fallback"
)

// Coordinates is a GPS fix in signed decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// Valid reports whether the fix is a usable position. A (0,0) pair is how
// cameras without a GPS lock report "no position" and is treated as absent.
func (c Coordinates) Valid() bool {
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// PictureRecord holds one photograph's indexed state. Path is the unique
// key for deduplication; Place is set only when Coordinates is set and
// resolution succeeded.
type PictureRecord struct {
	Path          string        `json:"path"`
	CapturedAt    time.Time     `json:"captured_at"`
	WeekNumber    int           `json:"week_number"`
	Coordinates   *Coordinates  `json:"coordinates"`
	Place         *string       `json:"place"`
	SourceQuality SourceQuality `json:"source_quality"`
}

// Equal reports whether two records carry identical content. The database
// writer uses it to turn a repeated upsert into a no-op.
func (r PictureRecord) Equal(other PictureRecord) bool {
	if r.Path != other.Path ||
		!r.CapturedAt.Equal(other.CapturedAt) ||
		r.WeekNumber != other.WeekNumber ||
		r.SourceQuality != other.SourceQuality {
		return false
	}
	if (r.Coordinates == nil) != (other.Coordinates == nil) {
		return false
	}
	if r.Coordinates != nil && *r.Coordinates != *other.Coordinates {
		return false
	}
	if (r.Place == nil) != (other.Place == nil) {
		return false
	}
	if r.Place != nil && *r.Place != *other.Place {
		return false
	}
	return true
}

// WeekNumber returns the week of the year with Monday as the first day of
// the week; days before the first Monday of the year fall in week 0.
func WeekNumber(t time.Time) int {
	yday := t.YearDay() - 1
	wday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return (yday - wday + 7) / 7
}
