package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations[i] moves a database from user_version i to i+1.
var migrations = []string{
	baseSchema,
}

// ErrSchemaMismatch reports a database written by a newer habari.
var ErrSchemaMismatch = errors.New("history schema is newer than this build")

func schemaVersion() int { return len(migrations) }

// migrate applies any pending migrations inside one transaction and records
// progress in SQLite's user_version pragma.
func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read history schema version: %w", err)
	}
	switch {
	case current == schemaVersion():
		return nil
	case current > schemaVersion():
		return fmt.Errorf("%w: %s is at version %d, this build knows %d (remove it to start a fresh history)",
			ErrSchemaMismatch, s.path, current, schemaVersion())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for v := current; v < schemaVersion(); v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("apply history migration %d: %w", v+1, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("record history schema version: %w", err)
	}
	return tx.Commit()
}
