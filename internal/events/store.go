// Package events persists disposal events to SQLite and serves the
// aggregate queries the API and reporting tools read. Writes come only
// from the pipeline; reads may run concurrently and never block it.
package events

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sortacle/sortacle/internal/waste"
)

// Recording failures come in two kinds. Connectivity failures are
// transient (locked file, disk trouble); constraint failures mean the
// event itself is invalid.
var (
	ErrConnectivity = errors.New("event store unavailable")
	ErrConstraint   = errors.New("event violates schema constraint")
)

// Store wraps the SQLite database holding disposal events.
type Store struct {
	*sql.DB
	path string
}

// NewStore opens (or creates) the event database at path and bootstraps
// the schema. Migrations beyond the bootstrap schema are applied with
// MigrateUp.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL lets API reads proceed while the pipeline writes; the busy
	// timeout covers the brief writer lock on commit.
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS disposal_events (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         REAL NOT NULL,
			datetime          TEXT NOT NULL,
			item_label        TEXT NOT NULL,
			material_category TEXT NOT NULL,
			confidence        REAL NOT NULL CHECK (confidence >= 0.0 AND confidence <= 1.0),
			is_recyclable     BOOLEAN NOT NULL,
			bin_id            TEXT DEFAULT 'bin_001',
			location          TEXT DEFAULT 'unknown',
			bbox_x1           REAL,
			bbox_y1           REAL,
			bbox_x2           REAL,
			bbox_y2           REAL
		);
		CREATE INDEX IF NOT EXISTS idx_disposal_timestamp ON disposal_events(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_disposal_label     ON disposal_events(item_label);
		CREATE INDEX IF NOT EXISTS idx_disposal_category  ON disposal_events(material_category);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap event schema: %w", err)
	}

	return &Store{DB: db, path: path}, nil
}

// Record inserts one disposal event and returns the assigned id. The
// caller's event is not mutated; ownership of the stored row passes to the
// store.
func (s *Store) Record(ev waste.DisposalEvent) (int64, error) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	res, err := s.Exec(`
		INSERT INTO disposal_events
			(timestamp, datetime, item_label, material_category, confidence,
			 is_recyclable, bin_id, location, bbox_x1, bbox_y1, bbox_x2, bbox_y2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		float64(ts.UnixNano())/1e9,
		ts.Format(time.RFC3339),
		ev.Label,
		string(ev.Category),
		ev.Confidence,
		ev.Recyclable,
		ev.BinID,
		ev.Location,
		ev.BBox[0], ev.BBox[1], ev.BBox[2], ev.BBox[3],
	)
	if err != nil {
		return 0, classifyStoreError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return id, nil
}

// QueryRecent returns up to limit events, newest first.
func (s *Store) QueryRecent(limit int) ([]waste.DisposalEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.Query(`
		SELECT id, timestamp, item_label, material_category, confidence,
		       is_recyclable, bin_id, location, bbox_x1, bbox_y1, bbox_x2, bbox_y2
		FROM disposal_events
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]waste.DisposalEvent, error) {
	var events []waste.DisposalEvent
	for rows.Next() {
		var ev waste.DisposalEvent
		var ts float64
		var category string
		if err := rows.Scan(
			&ev.ID, &ts, &ev.Label, &category, &ev.Confidence,
			&ev.Recyclable, &ev.BinID, &ev.Location,
			&ev.BBox[0], &ev.BBox[1], &ev.BBox[2], &ev.BBox[3],
		); err != nil {
			return nil, err
		}
		ev.Category = waste.MaterialCategory(category)
		sec := int64(ts)
		ev.Timestamp = time.Unix(sec, int64((ts-float64(sec))*1e9))
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// QuerySince returns every event recorded at or after the cutoff, newest
// first.
func (s *Store) QuerySince(cutoff time.Time) ([]waste.DisposalEvent, error) {
	rows, err := s.Query(`
		SELECT id, timestamp, item_label, material_category, confidence,
		       is_recyclable, bin_id, location, bbox_x1, bbox_y1, bbox_x2, bbox_y2
		FROM disposal_events
		WHERE timestamp >= ?
		ORDER BY timestamp DESC`, float64(cutoff.UnixNano())/1e9)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// classifyStoreError maps a raw sqlite error onto the store taxonomy.
func classifyStoreError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectivity, err)
}
