// Package migrations holds the dedup schema for the SQL backends and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sql
var files embed.FS

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Up applies every pending migration for the dialect. Already applied
// migrations are skipped, so calling it on every start is safe.
func Up(ctx context.Context, db *sql.DB, d Dialect) (int, error) {
	var gd goose.Dialect
	switch d {
	case Postgres:
		gd = goose.DialectPostgres
	case SQLite:
		gd = goose.DialectSQLite3
	default:
		return 0, fmt.Errorf("unknown dialect %q", d)
	}

	fsys, err := fs.Sub(files, "sql/"+string(d))
	if err != nil {
		return 0, fmt.Errorf("migrations fs: %w", err)
	}
	p, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	res, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return len(res), nil
}
