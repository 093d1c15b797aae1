package cache

import (
	"context"
	"fmt"
)

// Run records one pipeline run against the cache.
type Run struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Key        string `json:"key"`
	SourceName string `json:"source_name"`
	Hit        bool   `json:"hit"`
}

// Stats summarizes cache contents.
type Stats struct {
	Entries      int64 `json:"entries"`
	Dependencies int64 `json:"dependencies"`
	Runs         int64 `json:"runs"`
	Hits         int64 `json:"hits"`
}

// RecordRun appends a run record. Seq is assigned by the store.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, entry_key, source_name, hit)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Key, run.SourceName, boolToInt(run.Hit))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, oldest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, entry_key, source_name, hit FROM (
			SELECT seq, id, entry_key, source_name, hit
			FROM runs
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var hit int
		if err := rows.Scan(&r.Seq, &r.ID, &r.Key, &r.SourceName, &hit); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Hit = hit == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Stats counts entries, dependencies, runs and cache hits.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM dependencies),
			(SELECT COUNT(*) FROM runs),
			(SELECT COUNT(*) FROM runs WHERE hit = 1)
	`).Scan(&st.Entries, &st.Dependencies, &st.Runs, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Clear removes every entry, dependency and run.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"dependencies", "entries", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
