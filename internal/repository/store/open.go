// Package store picks a dedup backend from a connection string.
package store

import (
	"strings"
	"time"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/repository/postgres"
	"github.com/NordCoder/ghrelay/internal/repository/redis"
	"github.com/NordCoder/ghrelay/internal/repository/sqlite"
)

const DefaultMaxConns = 5

type Options struct {
	MaxConns       int
	QueryTimeout   time.Duration
	RedisKeyPrefix string
	Now            func() time.Time
}

// Open returns an uninitialized store for dsn. It never dials: an unknown
// scheme fails with *dedup.UnsupportedStoreError before any connection is made.
//
// Recognized forms:
//
//	sqlite::memory:
//	sqlite://<path>, sqlite:<path>, file://<path>, file:<path>
//	postgres://..., postgresql://...
//	redis://..., rediss://...
func Open(dsn string, opts Options) (dedup.Store, error) {
	dsn = strings.TrimSpace(dsn)
	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}

	switch scheme := Scheme(dsn); scheme {
	case "sqlite", "file":
		return sqlite.NewDedupRepo(sqlite.Config{
			Path:         sqlitePath(dsn, scheme),
			MaxConns:     opts.MaxConns,
			QueryTimeout: opts.QueryTimeout,
		}, opts.Now), nil
	case "postgres", "postgresql":
		return postgres.NewDedupRepo(postgres.Config{
			DSN:          dsn,
			MaxConns:     int32(opts.MaxConns),
			QueryTimeout: opts.QueryTimeout,
		}, opts.Now), nil
	case "redis", "rediss":
		return redis.NewDedupRepo(redis.Config{
			URL:          dsn,
			KeyPrefix:    opts.RedisKeyPrefix,
			MaxConns:     opts.MaxConns,
			QueryTimeout: opts.QueryTimeout,
		}, opts.Now), nil
	default:
		return nil, &dedup.UnsupportedStoreError{Scheme: scheme}
	}
}

// Scheme returns the lower-cased part of dsn before the first colon.
func Scheme(dsn string) string {
	i := strings.Index(dsn, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(dsn[:i])
}

func sqlitePath(dsn, scheme string) string {
	rest := dsn[len(scheme)+1:]
	if rest == sqlite.MemoryPath || rest == "//"+sqlite.MemoryPath {
		return sqlite.MemoryPath
	}
	return strings.TrimPrefix(rest, "//")
}
