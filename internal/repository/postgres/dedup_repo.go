package postgres

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/repository/migrations"
)

var _ dedup.Store = (*DedupRepo)(nil)

var errNotInitialized = errors.New("store not initialized")

type DedupRepo struct {
	cfg Config
	now func() time.Time
	mu  sync.RWMutex
	db  *DB
}

func NewDedupRepo(cfg Config, now func() time.Time) *DedupRepo {
	if now == nil {
		now = time.Now
	}
	return &DedupRepo{cfg: cfg, now: now}
}

const (
	qDedupExists = `SELECT EXISTS (SELECT 1 FROM sent_notifications WHERE id = $1);`

	qDedupInsert = `
INSERT INTO sent_notifications (id, sent_at)
VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING;`
)

func (r *DedupRepo) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		db, err := NewDB(ctx, r.cfg)
		if err != nil {
			return &dedup.StoreInitError{Backend: "postgres", Err: err}
		}
		r.db = db
	}

	sqlDB := r.db.SQL()
	defer sqlDB.Close()

	if _, err := migrations.Up(ctx, sqlDB, migrations.Postgres); err != nil {
		return &dedup.StoreInitError{Backend: "postgres", Err: err}
	}
	return nil
}

// handle returns the current connection; a cycle abandoned at shutdown may still
// call in after Close.
func (r *DedupRepo) handle() *DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

func (r *DedupRepo) IsSent(ctx context.Context, id string) (bool, error) {
	db := r.handle()
	if db == nil {
		return false, &dedup.StoreQueryError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := db.Pool.QueryRow(ctx, qDedupExists, id).Scan(&ok); err != nil {
		return false, &dedup.StoreQueryError{ID: id, Err: err}
	}
	return ok, nil
}

func (r *DedupRepo) MarkSent(ctx context.Context, id string) error {
	db := r.handle()
	if db == nil {
		return &dedup.StoreWriteError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if _, err := db.Pool.Exec(ctx, qDedupInsert, id, r.now().UTC()); err != nil {
		return &dedup.StoreWriteError{ID: id, Err: err}
	}
	return nil
}

func (r *DedupRepo) Ping(ctx context.Context) error {
	db := r.handle()
	if db == nil {
		return errNotInitialized
	}
	return db.Pool.Ping(ctx)
}

func (r *DedupRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
	return nil
}
