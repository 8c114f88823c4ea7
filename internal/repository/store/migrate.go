package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/repository/migrations"
	"github.com/NordCoder/ghrelay/internal/repository/sqlite"
)

// Migrate applies the SQL schema for dsn without starting a store and returns
// the number of migrations applied. Redis has no schema.
func Migrate(ctx context.Context, dsn string) (int, error) {
	dsn = strings.TrimSpace(dsn)

	var (
		driver, source string
		dialect        migrations.Dialect
	)
	switch scheme := Scheme(dsn); scheme {
	case "sqlite", "file":
		driver, source, dialect = "sqlite", sqlitePath(dsn, scheme), migrations.SQLite
	case "postgres", "postgresql":
		driver, source, dialect = "pgx", dsn, migrations.Postgres
	case "redis", "rediss":
		return 0, nil
	default:
		return 0, &dedup.UnsupportedStoreError{Scheme: scheme}
	}

	if driver == "sqlite" && source != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
			return 0, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping %s: %w", driver, err)
	}
	return migrations.Up(ctx, db, dialect)
}
