// Package store keeps a SQLite history of pipeline runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/utils"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// History is a run log backed by a SQLite file. Safe for concurrent use.
type History struct {
	db   *sql.DB
	path string
}

// Summary is one row of the run listing.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Rows      int       `json:"rows" yaml:"rows"`
	K         int       `json:"k" yaml:"k"`
	Inertia   float64   `json:"inertia" yaml:"inertia"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	row_count INTEGER NOT NULL,
	k INTEGER NOT NULL,
	inertia REAL NOT NULL,
	report_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*History, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &History{db: db, path: path}, nil
}

// Path returns the database file location.
func (h *History) Path() string { return h.path }

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Save records a report. Saving the same id twice replaces the first entry.
func (h *History) Save(ctx context.Context, rep *pipeline.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, source, created_at, row_count, k, inertia, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Source, rep.CreatedAt.UnixNano(), rep.Rows, rep.K, rep.Inertia, string(b))
	if err != nil {
		return fmt.Errorf("save run %s: %w", rep.ID, err)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all.
func (h *History) List(ctx context.Context, limit int) ([]Summary, error) {
	q := `SELECT id, source, created_at, row_count, k, inertia FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s  Summary
			ns int64
		)
		if err := rows.Scan(&s.ID, &s.Source, &ns, &s.Rows, &s.K, &s.Inertia); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CreatedAt = time.Unix(0, ns).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get loads the full report for id.
func (h *History) Get(ctx context.Context, id string) (*pipeline.Report, error) {
	var raw string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var rep pipeline.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &rep, nil
}
