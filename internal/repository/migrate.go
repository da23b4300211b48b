package repository

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/campusshare/campusshare/migrations"
)

// migrationLockID serializes concurrent migrators.
const migrationLockID int64 = 7_240_001

const schemaMigrationsDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Migration is one numbered schema change.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// LoadMigrations reads migration pairs from fsys, ordered by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		var version string
		var up bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			version, up = strings.TrimSuffix(name, ".up.sql"), true
		case strings.HasSuffix(name, ".down.sql"):
			version = strings.TrimSuffix(name, ".down.sql")
		default:
			return nil, fmt.Errorf("migration %s: expected .up.sql or .down.sql suffix", name)
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if up {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s: missing up script", m.Version)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })

	return out, nil
}

// Migrate applies every pending embedded migration in one transaction and
// returns the versions applied.
func (r *Repository) Migrate(ctx context.Context) ([]string, error) {
	all, err := LoadMigrations(migrations.FS)
	if err != nil {
		return nil, err
	}

	var applied []string
	err = r.withMigrationLock(ctx, func(tx pgx.Tx, done map[string]bool) error {
		for _, m := range all {
			if done[m.Version] {
				continue
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return fmt.Errorf("apply %s: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
				return fmt.Errorf("record %s: %w", m.Version, err)
			}
			applied = append(applied, m.Version)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return applied, nil
}

// MigrateDown rolls back the latest steps applied migrations, or all of them
// when steps <= 0, and returns the versions reverted.
func (r *Repository) MigrateDown(ctx context.Context, steps int) ([]string, error) {
	all, err := LoadMigrations(migrations.FS)
	if err != nil {
		return nil, err
	}

	var reverted []string
	err = r.withMigrationLock(ctx, func(tx pgx.Tx, done map[string]bool) error {
		for i := len(all) - 1; i >= 0; i-- {
			if steps > 0 && len(reverted) == steps {
				break
			}
			m := all[i]
			if !done[m.Version] {
				continue
			}
			if m.Down == "" {
				return fmt.Errorf("migration %s: missing down script", m.Version)
			}
			if _, err := tx.Exec(ctx, m.Down); err != nil {
				return fmt.Errorf("revert %s: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
				return fmt.Errorf("unrecord %s: %w", m.Version, err)
			}
			reverted = append(reverted, m.Version)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reverted, nil
}

func (r *Repository) withMigrationLock(ctx context.Context, fn func(tx pgx.Tx, done map[string]bool) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if _, err := tx.Exec(ctx, schemaMigrationsDDL); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan schema_migrations: %w", err)
	}

	done := make(map[string]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}

	if err := fn(tx, done); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
