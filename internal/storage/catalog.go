package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const catalogFile = "runs.db"

// Catalog indexes saved runs in SQLite so they can be ranked and filtered
// without reading every run directory.
type Catalog struct {
	db *sql.DB
}

// CatalogEntry is one indexed run.
type CatalogEntry struct {
	ID          string
	Preset      string
	Timestamp   time.Time
	Particles   int
	Seed        int64
	FinalPassed float64
	MaxLag      float64
	MaxOverlap  float64
}

// OpenCatalog opens or creates the catalog database inside dir.
func OpenCatalog(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		preset TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		particles INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		final_passed REAL NOT NULL DEFAULT 0,
		max_lag REAL NOT NULL DEFAULT 0,
		max_overlap REAL NOT NULL DEFAULT 0
	);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add indexes a run, replacing any previous entry with the same ID.
func (c *Catalog) Add(ctx context.Context, meta RunMetadata) error {
	query := `
		INSERT OR REPLACE INTO runs (id, preset, timestamp, particles, seed, final_passed, max_lag, max_overlap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		meta.ID, meta.Preset, meta.Timestamp.UTC(), meta.Particles, meta.Seed,
		meta.Metrics["final_passed"], meta.Metrics["max_lag"], meta.Metrics["max_overlap"],
	)
	if err != nil {
		return fmt.Errorf("failed to index run %s: %w", meta.ID, err)
	}
	return nil
}

// Rebuild clears the catalog and indexes every run in store.
func (c *Catalog) Rebuild(ctx context.Context, store *Store) (int, error) {
	runs, err := store.List()
	if err != nil {
		return 0, err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return 0, fmt.Errorf("failed to clear catalog: %w", err)
	}
	for _, meta := range runs {
		if err := c.Add(ctx, meta); err != nil {
			return 0, err
		}
	}
	return len(runs), nil
}

// Query returns runs, optionally filtered by preset, ordered by worst lag
// first when byLag is set and newest first otherwise.
func (c *Catalog) Query(ctx context.Context, preset string, byLag bool, limit int) ([]CatalogEntry, error) {
	query := `SELECT id, preset, timestamp, particles, seed, final_passed, max_lag, max_overlap FROM runs`
	args := []any{}
	if preset != "" {
		query += ` WHERE preset = ?`
		args = append(args, preset)
	}
	if byLag {
		query += ` ORDER BY max_lag DESC, timestamp DESC`
	} else {
		query += ` ORDER BY timestamp DESC`
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		err := rows.Scan(&e.ID, &e.Preset, &e.Timestamp, &e.Particles, &e.Seed,
			&e.FinalPassed, &e.MaxLag, &e.MaxOverlap)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
