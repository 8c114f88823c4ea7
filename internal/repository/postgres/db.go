package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxConns = 5
	connectTimeout  = 5 * time.Second
)

type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	QueryTimeout      time.Duration
}

// DB is a pgx pool with a per-query deadline.
type DB struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	pcfg.MaxConns = defaultMaxConns
	if c.MaxConns > 0 {
		pcfg.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 && c.MinConns <= pcfg.MaxConns {
		pcfg.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.HealthCheckPeriod > 0 {
		pcfg.HealthCheckPeriod = c.HealthCheckPeriod
	}
	pcfg.ConnConfig.RuntimeParams["application_name"] = "ghrelay"
	return pcfg, nil
}

func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	pcfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(hctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{Pool: pool, QueryTimeout: cfg.QueryTimeout}, nil
}

// SQL exposes the pool through database/sql for tools that need it, such as goose.
// Closing the returned handle leaves the pool open.
func (db *DB) SQL() *sql.DB { return stdlib.OpenDBFromPool(db.Pool) }

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}
