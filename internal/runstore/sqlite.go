package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps reports in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA foreign_keys=ON;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_ns INTEGER NOT NULL,
		finished_ns INTEGER NOT NULL,
		cache_hits INTEGER NOT NULL,
		cache_misses INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		warnings JSON NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_ns);

	CREATE TABLE IF NOT EXISTS run_nodes (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		node_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, node_id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save inserts a report, replacing any earlier report with the same run ID.
func (s *SQLiteStore) Save(ctx context.Context, r *Report) error {
	warnings, err := json.Marshal(nonNil(r.Warnings))
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, r.RunID.String()); err != nil {
		return fmt.Errorf("failed to replace run %s: %w", r.RunID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, status, started_ns, finished_ns, cache_hits, cache_misses, error, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID.String(), r.Status, r.Started.UnixNano(), r.Finished.UnixNano(),
		r.CacheHits, r.CacheMisses, r.Error, string(warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_nodes (run_id, node_id, name, type, status, state, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer stmt.Close()
	for _, n := range r.Nodes {
		if _, err := stmt.ExecContext(ctx, r.RunID.String(), n.NodeID.String(), n.Name, n.Type, n.Status, n.State, n.Error); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.Name, err)
		}
	}
	return tx.Commit()
}

// Get loads a report and its node reports.
func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, status, started_ns, finished_ns, cache_hits, cache_misses, error, warnings
		FROM runs WHERE run_id = ?`, id.String())
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, name, type, status, state, error
		FROM run_nodes WHERE run_id = ? ORDER BY name, node_id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes of run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var n NodeReport
		var nodeID string
		if err := rows.Scan(&nodeID, &n.Name, &n.Type, &n.Status, &n.State, &n.Error); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		if n.NodeID, err = uuid.Parse(nodeID); err != nil {
			return nil, fmt.Errorf("corrupt node id %q: %w", nodeID, err)
		}
		r.Nodes = append(r.Nodes, n)
	}
	return r, rows.Err()
}

// List returns the newest reports first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, status, started_ns, finished_ns, cache_hits, cache_misses, error, warnings
		FROM runs ORDER BY started_ns DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (*Report, error) {
	var (
		r                 Report
		runID, warnings   string
		started, finished int64
	)
	err := sc.Scan(&runID, &r.Status, &started, &finished, &r.CacheHits, &r.CacheMisses, &r.Error, &warnings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}
	if r.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("corrupt run id %q: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
		return nil, fmt.Errorf("corrupt warnings of run %s: %w", runID, err)
	}
	r.Started = time.Unix(0, started)
	r.Finished = time.Unix(0, finished)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
