package serve

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	deepthink "github.com/everydev1618/godeepthink"
)

// SQLiteStore persists runs in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	s.db = db

	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	state       TEXT NOT NULL,
	answer      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	outcome     TEXT,
	created_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	var outcome any
	if rec.Outcome != nil {
		data, err := json.Marshal(rec.Outcome)
		if err != nil {
			return fmt.Errorf("marshaling outcome: %w", err)
		}
		outcome = string(data)
	}

	var finished any
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, query, state, answer, error, outcome, created_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state = excluded.state,
	answer = excluded.answer,
	error = excluded.error,
	outcome = excluded.outcome,
	finished_at = excluded.finished_at`,
		rec.ID, rec.Query, string(rec.State), rec.Answer, rec.Error,
		outcome, rec.CreatedAt.UnixMilli(), finished)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	return nil
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, query, state, answer, error, outcome, created_at, finished_at
FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return rec, err
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, query, state, answer, error, outcome, created_at, finished_at
FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec      RunRecord
		state    string
		outcome  sql.NullString
		created  int64
		finished sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Query, &state, &rec.Answer, &rec.Error,
		&outcome, &created, &finished)
	if err != nil {
		return nil, err
	}
	rec.State = deepthink.State(state)
	rec.CreatedAt = time.UnixMilli(created)
	if finished.Valid {
		rec.FinishedAt = time.UnixMilli(finished.Int64)
	}
	if outcome.Valid && outcome.String != "" {
		var out deepthink.RunOutcome
		if err := json.Unmarshal([]byte(outcome.String), &out); err != nil {
			return nil, fmt.Errorf("unmarshaling outcome for %s: %w", rec.ID, err)
		}
		rec.Outcome = &out
	}
	return &rec, nil
}
