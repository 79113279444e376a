package scanner

import (
	"context"

	"photodb/exifmeta"
	"photodb/types"
)

// Options defines the options for a scan.
type Options struct {
	FolderPath string
	Force      bool
	Debug      bool
	MaxWorkers int
}

// MetadataSource extracts embedded metadata for one file.
type MetadataSource interface {
	Extract(path string) (exifmeta.Metadata, error)
}

// PlaceResolver turns a coordinate pair into a place description.
type PlaceResolver interface {
	Resolve(ctx context.Context, coords types.Coordinates) (string, error)
}

// Status is a file's terminal pipeline state.
type Status int

const (
	// StatusCommitted means the record reached the database and journal.
	StatusCommitted Status = iota
	// StatusSkipped means the path was already indexed and left alone.
	StatusSkipped
	// StatusFailed means this file failed; the scan continues without it.
	StatusFailed
)

// Result holds the outcome of processing one file.
type Result struct {
	Path   string
	Status Status
	Reason string
}

// Failure identifies one file the scan could not commit.
type Failure struct {
	Path   string
	Reason string
}

// Summary is the user-visible outcome of a whole run.
type Summary struct {
	Committed int
	Skipped   int
	Failed    int
	Failures  []Failure
}
