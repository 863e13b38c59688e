package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckSummary is the per-check slice of a run record, stored as JSON.
type CheckSummary struct {
	Name             string `json:"name"`
	OK               bool   `json:"ok"`
	Skipped          bool   `json:"skipped,omitempty"`
	ExitCode         int    `json:"exit_code"`
	TotalFindings    int    `json:"total_findings"`
	BlockingFindings int    `json:"blocking_findings"`
}

// RunRecord represents a single gate run
type RunRecord struct {
	ID               string
	StartedAt        time.Time
	Duration         time.Duration
	Pass             bool
	BlockingFindings int
	Checks           []CheckSummary
}

// NewRunID generates a unique identifier for a gate run
func NewRunID() string {
	return uuid.New().String()
}

// RecordRun persists one gate run
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		rec.ID = NewRunID()
	}

	checksJSON, err := json.Marshal(rec.Checks)
	if err != nil {
		return fmt.Errorf("marshal check summaries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_secs, pass, blocking_findings, checks)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC(),
		rec.Duration.Seconds(),
		rec.Pass,
		rec.BlockingFindings,
		string(checksJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent gate runs, newest first.
// limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, duration_secs, pass, blocking_findings, checks
		FROM runs
		ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationSecs float64
		var checksJSON string

		if err := rows.Scan(&rec.ID, &rec.StartedAt, &durationSecs, &rec.Pass, &rec.BlockingFindings, &checksJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.Duration = time.Duration(durationSecs * float64(time.Second))
		if err := json.Unmarshal([]byte(checksJSON), &rec.Checks); err != nil {
			return nil, fmt.Errorf("unmarshal check summaries for run %s: %w", rec.ID, err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return records, nil
}
