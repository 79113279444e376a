// Package scanner drives the ingestion pipeline: walk a directory tree,
// extract metadata per file, resolve places through the cached geocoder,
// commit records to the database and append them to the journal. A single
// bad file never aborts the scan.
package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"photodb/database"
	"photodb/exifmeta"
	"photodb/geocode"
	"photodb/journal"
	"photodb/logging"
	"photodb/types"
)

// errScanStopped is the walk's internal stop signal for cancellation and
// fatal pipeline errors.
var errScanStopped = errors.New("scan stopped")

// Pipeline wires the pipeline stages together. Extractor and Resolver are
// interfaces so the pipeline can be exercised without real files or a
// real geocoding service. A nil Resolver disables place resolution;
// records then commit with path and timestamp only.
type Pipeline struct {
	DB        *sql.DB
	Extractor MetadataSource
	Resolver  PlaceResolver
	Journal   *journal.Journal
}

// ScanFolder walks the folder recursively and routes every photo file
// through the pipeline. Per-file failures are recorded in the summary;
// only fatal conditions (geocoding credentials or quota, a broken
// journal, cancellation) abort the scan.
func (p *Pipeline) ScanFolder(ctx context.Context, opts Options) (Summary, error) {
	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	resultsChan := make(chan Result, 100)
	semaphore := make(chan struct{}, workers)

	progressTracker := newTracker(resultsChan, opts.Debug)

	var fatalMu sync.Mutex
	var fatalErr error
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
			cancel()
		}
		fatalMu.Unlock()
	}

	walkErr := filepath.Walk(opts.FolderPath, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return errScanStopped
		}
		if err != nil {
			logging.Error("cannot access %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !exifmeta.IsPhotoFile(path) {
			return nil
		}

		wg.Add(1)
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Done()
			return errScanStopped
		}

		go func(filePath string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result, fatal := p.processFile(ctx, filePath, opts.Force)
			resultsChan <- result
			if fatal != nil {
				setFatal(fatal)
			}
		}(path)

		return nil
	})

	wg.Wait()
	close(resultsChan)
	summary := progressTracker.wait()

	fatalMu.Lock()
	defer fatalMu.Unlock()
	switch {
	case fatalErr != nil:
		return summary, fatalErr
	case errors.Is(walkErr, errScanStopped):
		return summary, ctx.Err()
	case walkErr != nil:
		return summary, walkErr
	}
	return summary, nil
}

// AddFile routes a single photo through the pipeline.
func (p *Pipeline) AddFile(ctx context.Context, path string) (Result, error) {
	result, fatal := p.processFile(ctx, path, false)
	if fatal != nil {
		return result, fatal
	}
	if result.Status == StatusFailed {
		return result, fmt.Errorf("%s: %s", result.Path, result.Reason)
	}
	return result, nil
}

// processFile takes one file through the full pipeline: extract, resolve
// (when coordinates exist), commit, journal. The returned error is
// non-nil only for fatal conditions that must stop the whole scan;
// everything else is folded into the Result.
func (p *Pipeline) processFile(ctx context.Context, path string, force bool) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return failed(path, fmt.Sprintf("cannot resolve path: %v", err)), nil
	}

	if !force {
		exists, err := database.ExistsByPath(p.DB, abs)
		if err != nil {
			return failed(abs, err.Error()), nil
		}
		if exists {
			logging.Debug("record %s already in database", abs)
			return Result{Path: abs, Status: StatusSkipped}, nil
		}
	}

	meta, err := p.Extractor.Extract(path)
	if err != nil {
		return failed(abs, err.Error()), nil
	}

	rec := types.PictureRecord{
		Path:          abs,
		CapturedAt:    meta.CapturedAt,
		WeekNumber:    types.WeekNumber(meta.CapturedAt),
		Coordinates:   meta.Coordinates,
		SourceQuality: meta.SourceQuality,
	}

	if meta.Coordinates != nil && p.Resolver != nil {
		place, err := p.Resolver.Resolve(ctx, *meta.Coordinates)
		switch {
		case err == nil:
			rec.Place = &place
		case geocode.IsFatal(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return failed(abs, err.Error()), err
		default:
			// Soft failure: the record proceeds without a place.
			logging.Warning("could not resolve place for %s: %v", abs, err)
		}
	}

	res, err := database.Upsert(p.DB, rec)
	if err != nil {
		// Never journaled: the record did not reach the database.
		return failed(abs, err.Error()), nil
	}
	if res == database.Unchanged {
		// Nothing was written, so there is nothing to journal.
		logging.Debug("record %s unchanged", abs)
		return Result{Path: abs, Status: StatusSkipped}, nil
	}

	if err := p.Journal.Append(rec); err != nil {
		// The journal's durability guarantee is broken; stop the run.
		return failed(abs, err.Error()), err
	}

	return Result{Path: abs, Status: StatusCommitted}, nil
}

func failed(path, reason string) Result {
	return Result{Path: path, Status: StatusFailed, Reason: reason}
}
