// Package database is the SQLite writer behind the ingestion pipeline:
// idempotent upsert-by-path, an existence fast path for re-runs, and an
// explicit destructive schema initialization.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"photodb/types"
)

const timeLayout = time.RFC3339Nano

// schema wipes and recreates the picture table. Running it is an explicit,
// separately invoked operation; normal runs never touch it.
var schema = []string{
	`DROP TABLE IF EXISTS picture`,
	`CREATE TABLE picture (
		path           TEXT PRIMARY KEY,
		captured_at    TEXT NOT NULL,
		week_number    INTEGER NOT NULL,
		latitude       REAL,
		longitude      REAL,
		place          TEXT,
		source_quality TEXT NOT NULL
	)`,
	`CREATE INDEX idx_picture_captured_at ON picture(captured_at)`,
}

// Open opens a database connection. It does not create the schema; run
// the initdb command for that. The busy timeout lets parallel extraction
// workers queue on the write lock instead of erroring.
func Open(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
}

// InitSchema drops and recreates all tables. Destructive.
func InitSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema initialization failed: %v", err)
		}
	}
	return nil
}

// VerifySchema checks that the picture table exists. Schema creation is
// destructive and only ever happens through the explicit initdb command,
// so normal runs verify instead of creating.
func VerifySchema(db *sql.DB) error {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'picture'`).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("database schema not initialized; run the initdb command first")
	}
	if err != nil {
		return fmt.Errorf("cannot verify database schema: %v", err)
	}
	return nil
}

// UpsertResult reports what an upsert actually did.
type UpsertResult int

const (
	// Inserted means a new row was created.
	Inserted UpsertResult = iota
	// Updated means an existing row's content changed.
	Updated
	// Unchanged means an identical row already existed; nothing was written.
	Unchanged
)

// ExistsByPath reports whether a record with this path is already indexed.
func ExistsByPath(db *sql.DB, path string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM picture WHERE path = ?`, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("database error for %s: %v", path, err)
	}
	return count > 0, nil
}

// Upsert writes one record in its own transaction, keyed by path. Writing
// a record identical to the stored one is a no-op.
func Upsert(db *sql.DB, rec types.PictureRecord) (UpsertResult, error) {
	tx, err := db.Begin()
	if err != nil {
		return Unchanged, fmt.Errorf("cannot begin transaction for %s: %v", rec.Path, err)
	}

	existing, err := getByPath(tx, rec.Path)
	if err != nil {
		tx.Rollback()
		return Unchanged, err
	}
	if existing != nil && existing.Equal(rec) {
		tx.Rollback()
		return Unchanged, nil
	}

	var lat, long interface{}
	if rec.Coordinates != nil {
		lat = rec.Coordinates.Latitude
		long = rec.Coordinates.Longitude
	}
	var place interface{}
	if rec.Place != nil {
		place = *rec.Place
	}

	_, err = tx.Exec(`
		INSERT INTO picture (path, captured_at, week_number, latitude, longitude, place, source_quality)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			captured_at = excluded.captured_at,
			week_number = excluded.week_number,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			place = excluded.place,
			source_quality = excluded.source_quality`,
		rec.Path,
		rec.CapturedAt.Format(timeLayout),
		rec.WeekNumber,
		lat,
		long,
		place,
		string(rec.SourceQuality),
	)
	if err != nil {
		tx.Rollback()
		return Unchanged, fmt.Errorf("cannot store record for %s: %v", rec.Path, err)
	}

	if err := tx.Commit(); err != nil {
		return Unchanged, fmt.Errorf("cannot commit record for %s: %v", rec.Path, err)
	}

	if existing == nil {
		return Inserted, nil
	}
	return Updated, nil
}

// GetByPath returns the stored record for a path, or nil when absent.
func GetByPath(db *sql.DB, path string) (*types.PictureRecord, error) {
	return getByPath(db, path)
}

// FetchAll returns every stored record ordered by path.
func FetchAll(db *sql.DB) ([]types.PictureRecord, error) {
	rows, err := db.Query(`
		SELECT path, captured_at, week_number, latitude, longitude, place, source_quality
		FROM picture ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("cannot read picture table: %v", err)
	}
	defer rows.Close()

	var recs []types.PictureRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func getByPath(q querier, path string) (*types.PictureRecord, error) {
	row := q.QueryRow(`
		SELECT path, captured_at, week_number, latitude, longitude, place, source_quality
		FROM picture WHERE path = ?`, path)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read record for %s: %v", path, err)
	}
	return &rec, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scannable) (types.PictureRecord, error) {
	var rec types.PictureRecord
	var capturedAt string
	var lat, long sql.NullFloat64
	var place sql.NullString
	var quality string

	err := row.Scan(&rec.Path, &capturedAt, &rec.WeekNumber, &lat, &long, &place, &quality)
	if err != nil {
		return rec, err
	}

	rec.CapturedAt, err = time.Parse(timeLayout, capturedAt)
	if err != nil {
		return rec, fmt.Errorf("cannot parse stored time for %s: %v", rec.Path, err)
	}
	if lat.Valid && long.Valid {
		rec.Coordinates = &types.Coordinates{Latitude: lat.Float64, Longitude: long.Float64}
	}
	if place.Valid {
		p := place.String
		rec.Place = &p
	}
	rec.SourceQuality = types.SourceQuality(quality)
	return rec, nil
}
