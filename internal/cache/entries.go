package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bubby932/rhl/internal/preprocess"
)

// Entry is a cached preprocessing result.
type Entry struct {
	Key          string
	SourceName   string
	Output       string
	Dependencies []preprocess.Dependency
}

// Get returns the entry for key. ok is false if there is none.
func (s *Store) Get(ctx context.Context, key string) (entry Entry, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT key, source_name, output
		FROM entries
		WHERE key = ?
	`, key).Scan(&entry.Key, &entry.SourceName, &entry.Output)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get entry: %w", err)
	}

	entry.Dependencies, err = s.readDependencies(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) readDependencies(ctx context.Context, key string) ([]preprocess.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, name, hash
		FROM dependencies
		WHERE entry_key = ?
		ORDER BY ord ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	deps := []preprocess.Dependency{}
	for rows.Next() {
		var d preprocess.Dependency
		var kind string
		if err := rows.Scan(&kind, &d.Name, &d.Hash); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		d.Kind = preprocess.DependencyKind(kind)
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependencies: %w", err)
	}
	return deps, nil
}

// Put stores entry, replacing any previous entry with the same key along
// with its dependencies.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (key, source_name, output)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			source_name = excluded.source_name,
			output = excluded.output
	`, entry.Key, entry.SourceName, entry.Output)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE entry_key = ?`, entry.Key); err != nil {
		return fmt.Errorf("put entry: clear dependencies: %w", err)
	}

	for i, d := range entry.Dependencies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (entry_key, ord, kind, name, hash)
			VALUES (?, ?, ?, ?, ?)
		`, entry.Key, i, string(d.Kind), d.Name, d.Hash)
		if err != nil {
			return fmt.Errorf("put entry: dependency %s: %w", d.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put entry: commit: %w", err)
	}
	return nil
}

// Delete removes the entry for key and its dependencies. Deleting an
// absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}
