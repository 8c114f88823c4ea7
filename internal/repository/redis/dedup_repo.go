package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
)

var _ dedup.Store = (*DedupRepo)(nil)

var errNotInitialized = errors.New("store not initialized")

type Config struct {
	URL          string
	KeyPrefix    string
	MaxConns     int
	QueryTimeout time.Duration
}

// DedupRepo keeps one key per sent id. SETNX makes MarkSent insert-or-ignore.
type DedupRepo struct {
	cfg    Config
	now    func() time.Time
	client *goredis.Client
	mu     sync.RWMutex
}

func NewDedupRepo(cfg Config, now func() time.Time) *DedupRepo {
	if now == nil {
		now = time.Now
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ghrelay:sent:"
	}
	return &DedupRepo{cfg: cfg, now: now}
}

func (r *DedupRepo) key(id string) string { return r.cfg.KeyPrefix + id }

func (r *DedupRepo) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil
	}
	opts, err := goredis.ParseURL(r.cfg.URL)
	if err != nil {
		return &dedup.StoreInitError{Backend: "redis", Err: fmt.Errorf("parse url: %w", err)}
	}
	if r.cfg.MaxConns > 0 {
		opts.PoolSize = r.cfg.MaxConns
	}
	client := goredis.NewClient(opts)

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(hctx).Err(); err != nil {
		_ = client.Close()
		return &dedup.StoreInitError{Backend: "redis", Err: fmt.Errorf("ping: %w", err)}
	}
	r.client = client
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
func (r *DedupRepo) handle() *goredis.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

func (r *DedupRepo) IsSent(ctx context.Context, id string) (bool, error) {
	client := r.handle()
	if client == nil {
		return false, &dedup.StoreQueryError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, &dedup.StoreQueryError{ID: id, Err: err}
	}
	return n > 0, nil
}

func (r *DedupRepo) MarkSent(ctx context.Context, id string) error {
	client := r.handle()
	if client == nil {
		return &dedup.StoreWriteError{ID: id, Err: errNotInitialized}
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := client.SetNX(ctx, r.key(id), r.now().UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return &dedup.StoreWriteError{ID: id, Err: err}
	}
	return nil
}

func (r *DedupRepo) Ping(ctx context.Context) error {
	client := r.handle()
	if client == nil {
		return errNotInitialized
	}
	return client.Ping(ctx).Err()
}

func (r *DedupRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
