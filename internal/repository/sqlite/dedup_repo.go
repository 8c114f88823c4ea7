package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/repository/migrations"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

var _ dedup.Store = (*DedupRepo)(nil)

var errNotInitialized = errors.New("store not initialized")

type Config struct {
	Path         string
	MaxConns     int
	QueryTimeout time.Duration
	BusyTimeout  time.Duration
}

// DedupRepo keeps sent ids in a single-file SQLite database.
type DedupRepo struct {
	cfg Config
	now func() time.Time
	mu  sync.RWMutex
	db  *sqlx.DB
}

func NewDedupRepo(cfg Config, now func() time.Time) *DedupRepo {
	if now == nil {
		now = time.Now
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	return &DedupRepo{cfg: cfg, now: now}
}

func (r *DedupRepo) memory() bool { return r.cfg.Path == MemoryPath }

func (r *DedupRepo) dsn() string {
	if r.memory() {
		return MemoryPath
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		r.cfg.Path, r.cfg.BusyTimeout.Milliseconds())
}

// Init opens the database, creating its parent directory when needed, and
// applies the schema.
func (r *DedupRepo) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return nil
	}
	if strings.TrimSpace(r.cfg.Path) == "" {
		return &dedup.StoreInitError{Backend: "sqlite", Err: errors.New("sqlite path is required")}
	}
	if !r.memory() {
		if err := os.MkdirAll(filepath.Dir(r.cfg.Path), 0o755); err != nil {
			return &dedup.StoreInitError{Backend: "sqlite", Err: fmt.Errorf("create db directory: %w", err)}
		}
	}

	db, err := sqlx.Open("sqlite", r.dsn())
	if err != nil {
		return &dedup.StoreInitError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	if r.memory() {
		// every connection to :memory: is a different database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else if r.cfg.MaxConns > 0 {
		db.SetMaxOpenConns(r.cfg.MaxConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &dedup.StoreInitError{Backend: "sqlite", Err: fmt.Errorf("ping: %w", err)}
	}
	if _, err := migrations.Up(ctx, db.DB, migrations.SQLite); err != nil {
		_ = db.Close()
		return &dedup.StoreInitError{Backend: "sqlite", Err: err}
	}
	r.db = db
	return nil
}

func (r *DedupRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.QueryTimeout)
}

// handle returns the current connection; a cycle abandoned at shutdown may still
// call in after Close.
func (r *DedupRepo) handle() *sqlx.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

func (r *DedupRepo) IsSent(ctx context.Context, id string) (bool, error) {
	db := r.handle()
	if db == nil {
		return false, &dedup.StoreQueryError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(1) FROM sent_notifications WHERE id = ?`, id); err != nil {
		return false, &dedup.StoreQueryError{ID: id, Err: err}
	}
	return n > 0, nil
}

func (r *DedupRepo) MarkSent(ctx context.Context, id string) error {
	db := r.handle()
	if db == nil {
		return &dedup.StoreWriteError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := db.ExecContext(ctx,
		`INSERT INTO sent_notifications (id, sent_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &dedup.StoreWriteError{ID: id, Err: err}
	}
	return nil
}

func (r *DedupRepo) Ping(ctx context.Context) error {
	db := r.handle()
	if db == nil {
		return errNotInitialized
	}
	return db.PingContext(ctx)
}

func (r *DedupRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
