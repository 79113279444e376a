// Package journal keeps the append-only log of every record committed to
// the database, one JSON object per line. Replaying it rebuilds the
// database without re-reading files or re-querying the geocoding service.
package journal

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"photodb/database"
	"photodb/logging"
	"photodb/types"
)

// Journal is an append-only record log backed by a JSONL file.
type Journal struct {
	mu   sync.Mutex
	path string
}

// New creates a journal over the given file path. The file is created on
// first append.
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal's backing file path.
func (j *Journal) Path() string {
	return j.path
}

// Append durably writes one committed record. The line is synced before
// Append returns, so a crash right after a database commit cannot lose
// the corresponding journal entry once Append has succeeded. A failed
// append is fatal to the caller: the durability guarantee no longer holds.
func (j *Journal) Append(rec types.PictureRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal write failed for %s: %v", rec.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("journal write failed for %s: %v", rec.Path, err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("journal write failed for %s: %v", rec.Path, err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("journal write failed for %s: %v", rec.Path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal sync failed for %s: %v", rec.Path, err)
	}
	return f.Close()
}

// Extract returns every journaled record in append order. A journal that
// does not exist yet is empty, not an error.
func (j *Journal) Extract() ([]types.PictureRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot open journal %s: %v", j.path, err)
	}
	defer f.Close()

	return readRecords(f)
}

// WriteSnapshot writes records as a self-contained snapshot file in the
// same JSONL form as the journal itself. The write is atomic (temp file
// then rename) and deterministic, so extracting twice from the same
// journal produces byte-identical snapshots.
func WriteSnapshot(path string, recs []types.PictureRecord) error {
	var buf bytes.Buffer
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("cannot marshal record %s: %v", rec.Path, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("cannot write snapshot %s: %v", path, err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("cannot replace snapshot %s: %v", path, err)
	}
	return nil
}

// ReadSnapshot loads a snapshot file previously produced by WriteSnapshot.
func ReadSnapshot(path string) ([]types.PictureRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot %s: %v", path, err)
	}
	defer f.Close()

	return readRecords(f)
}

// Replay upserts every snapshot record into the database, keyed by path,
// and returns how many records were actually inserted or updated. Records
// whose path already exists with identical content are skipped. Replay
// never writes the journal: the journal that produced the snapshot stays
// the source of truth.
func Replay(db *sql.DB, recs []types.PictureRecord) (int, error) {
	committed := 0
	failed := 0

	for _, rec := range recs {
		res, err := database.Upsert(db, rec)
		if err != nil {
			logging.Error("replay failed for %s: %v", rec.Path, err)
			failed++
			continue
		}
		switch res {
		case database.Inserted, database.Updated:
			logging.Info("replayed record %s", rec.Path)
			committed++
		case database.Unchanged:
			logging.Info("skipping identical record %s", rec.Path)
		}
	}

	if failed > 0 {
		return committed, fmt.Errorf("replay: %d of %d records failed", failed, len(recs))
	}
	return committed, nil
}

func readRecords(r io.Reader) ([]types.PictureRecord, error) {
	var recs []types.PictureRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec types.PictureRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("corrupt journal entry at line %d: %v", line, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read journal: %v", err)
	}
	return recs, nil
}
