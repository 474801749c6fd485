package storage

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type migration struct {
	version string
	sql     string
}

func loadMigrations(dialect Dialect) ([]migration, error) {
	dir := "migrations/" + string(dialect)
	entries, err := migrationFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{version: strings.TrimSuffix(name, ".sql"), sql: string(data)})
	}
	return migrations, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations(s.dialect)
	if err != nil {
		return persistenceErr("load migrations", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr("begin migration tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return persistenceErr("ensure schema_migrations", err)
	}

	for _, m := range migrations {
		query, args, err := s.sb.Select("COUNT(1)").From("schema_migrations").Where(sq.Eq{"version": m.version}).ToSql()
		if err != nil {
			return persistenceErr("build migration lookup", err)
		}
		var count int
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return persistenceErr("scan migration version", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return persistenceErr("apply migration "+m.version, err)
		}
		insert, args, err := s.sb.Insert("schema_migrations").Columns("version").Values(m.version).ToSql()
		if err != nil {
			return persistenceErr("build migration record", err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return persistenceErr("record migration "+m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("commit migrations", err)
	}
	return nil
}
