// Package store persists run artifacts and the append-only execution history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reddit-persona/corpus"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// RunRecord is one execution-history entry. Records are append-only: once
// written they are never updated or deleted.
type RunRecord struct {
	RunID             string
	Username          string
	Model             string
	StartedAt         time.Time
	FinishedAt        time.Time
	ItemsFetched      int
	ItemsUsed         int
	ItemsDropped      int
	CitationsStripped int
	Outcome           Outcome
	Degraded          bool
	ErrorDetail       string
}

// Duration is the wall-clock run time.
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Stats aggregates the full execution history.
type Stats struct {
	TotalRuns       int
	Successful      int
	Partial         int
	Failed          int
	SuccessRate     float64
	AvgDurationSecs float64
	TotalItemsUsed  int
	LastRunAt       time.Time
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store owns the run-history database and the artifact directory.
type Store struct {
	conn    *sql.DB
	dataDir string
}

// New opens the history database and prepares the artifact directories.
func New(dbPath, dataDir string) (*Store, error) {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, "corpus"), filepath.Join(dataDir, "personas")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{conn: conn, dataDir: dataDir}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		model TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		items_fetched INTEGER NOT NULL DEFAULT 0,
		items_used INTEGER NOT NULL DEFAULT 0,
		items_dropped INTEGER NOT NULL DEFAULT 0,
		citations_stripped INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0,
		error_detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_username ON runs(username);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// AppendRun adds one history entry. Insert-only: an existing run id is an
// error, never an overwrite.
func (s *Store) AppendRun(ctx context.Context, rec *RunRecord) error {
	query := `
	INSERT INTO runs (run_id, username, model, started_at, finished_at,
		items_fetched, items_used, items_dropped, citations_stripped,
		outcome, degraded, error_detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.conn.ExecContext(ctx, query,
		rec.RunID,
		rec.Username,
		rec.Model,
		rec.StartedAt,
		rec.FinishedAt,
		rec.ItemsFetched,
		rec.ItemsUsed,
		rec.ItemsDropped,
		rec.CitationsStripped,
		string(rec.Outcome),
		rec.Degraded,
		rec.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	return nil
}

// History returns all run records, oldest first.
func (s *Store) History(ctx context.Context) ([]RunRecord, error) {
	query := `
	SELECT run_id, username, model, started_at, finished_at,
		items_fetched, items_used, items_dropped, citations_stripped,
		outcome, degraded, error_detail
	FROM runs ORDER BY started_at, run_id
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var outcome string
		if err := rows.Scan(
			&rec.RunID,
			&rec.Username,
			&rec.Model,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.ItemsFetched,
			&rec.ItemsUsed,
			&rec.ItemsDropped,
			&rec.CitationsStripped,
			&outcome,
			&rec.Degraded,
			&rec.ErrorDetail,
		); err != nil {
			return nil, err
		}
		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats computes aggregate statistics over the whole history.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	records, err := s.History(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalRuns: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	var totalSecs float64
	for _, rec := range records {
		switch rec.Outcome {
		case OutcomeSuccess:
			stats.Successful++
		case OutcomePartial:
			stats.Partial++
		default:
			stats.Failed++
		}
		stats.TotalItemsUsed += rec.ItemsUsed
		totalSecs += rec.Duration().Seconds()
		if rec.StartedAt.After(stats.LastRunAt) {
			stats.LastRunAt = rec.StartedAt
		}
	}
	stats.SuccessRate = float64(stats.Successful+stats.Partial) / float64(stats.TotalRuns) * 100
	stats.AvgDurationSecs = totalSecs / float64(stats.TotalRuns)
	return stats, nil
}

// SaveCorpus writes the corpus artifact for a target, replacing any previous
// one for the same username.
func (s *Store) SaveCorpus(username string, c *corpus.Corpus) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal corpus: %w", err)
	}

	path := filepath.Join(s.dataDir, "corpus", username+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write corpus artifact: %w", err)
	}
	return path, nil
}

// SavePersona writes the rendered persona report for a target.
func (s *Store) SavePersona(username, rendered string) (string, error) {
	path := filepath.Join(s.dataDir, "personas", username+".md")
	if err := writeFileAtomic(path, []byte(rendered)); err != nil {
		return "", fmt.Errorf("write persona artifact: %w", err)
	}
	return path, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers never observe a partially-written artifact.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
