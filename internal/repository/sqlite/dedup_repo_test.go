package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
)

func newMemoryRepo(t *testing.T) *DedupRepo {
	t.Helper()
	r := NewDedupRepo(Config{Path: MemoryPath, QueryTimeout: time.Second}, nil)
	require.NoError(t, r.Init(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDedupRepo_MarkThenIsSent(t *testing.T) {
	ctx := context.Background()
	r := newMemoryRepo(t)

	ids := []string{"1", "2", "thread-42", ""}
	for _, id := range ids {
		sent, err := r.IsSent(ctx, id)
		require.NoError(t, err)
		assert.False(t, sent, "id %q before mark", id)

		require.NoError(t, r.MarkSent(ctx, id))

		sent, err = r.IsSent(ctx, id)
		require.NoError(t, err)
		assert.True(t, sent, "id %q after mark", id)
	}

	sent, err := r.IsSent(ctx, "never")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestDedupRepo_MarkSentIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newMemoryRepo(t)

	require.NoError(t, r.MarkSent(ctx, "7"))
	require.NoError(t, r.MarkSent(ctx, "7"))

	var n int
	require.NoError(t, r.db.Get(&n, `SELECT COUNT(*) FROM sent_notifications WHERE id = '7'`))
	assert.Equal(t, 1, n)
}

func TestDedupRepo_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relay.db")

	r := NewDedupRepo(Config{Path: path}, nil)
	require.NoError(t, r.Init(ctx))
	require.NoError(t, r.Init(ctx))
	require.NoError(t, r.Close())

	again := NewDedupRepo(Config{Path: path}, nil)
	require.NoError(t, again.Init(ctx))
	require.NoError(t, again.Close())
}

func TestDedupRepo_CreatesParentDirAndSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "deeper", "relay.db")

	first := NewDedupRepo(Config{Path: path, MaxConns: 5}, nil)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.MarkSent(ctx, "abc"))
	require.NoError(t, first.Close())

	_, err := os.Stat(path)
	require.NoError(t, err)

	second := NewDedupRepo(Config{Path: path, MaxConns: 5}, nil)
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })

	sent, err := second.IsSent(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestDedupRepo_StoresSentAt(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewDedupRepo(Config{Path: MemoryPath}, func() time.Time { return at })
	require.NoError(t, r.Init(ctx))
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.MarkSent(ctx, "x"))

	var got string
	require.NoError(t, r.db.Get(&got, `SELECT sent_at FROM sent_notifications WHERE id = 'x'`))
	assert.Equal(t, at.Format(time.RFC3339Nano), got)
}

func TestDedupRepo_InitErrors(t *testing.T) {
	ctx := context.Background()

	err := NewDedupRepo(Config{Path: "  "}, nil).Init(ctx)
	var initErr *dedup.StoreInitError
	require.True(t, errors.As(err, &initErr))
	assert.Equal(t, "sqlite", initErr.Backend)

	// parent "directory" is a regular file
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	err = NewDedupRepo(Config{Path: filepath.Join(blocker, "relay.db")}, nil).Init(ctx)
	require.True(t, errors.As(err, &initErr))
}

func TestDedupRepo_UseBeforeInit(t *testing.T) {
	ctx := context.Background()
	r := NewDedupRepo(Config{Path: MemoryPath}, nil)

	_, err := r.IsSent(ctx, "1")
	var qErr *dedup.StoreQueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "1", qErr.ID)

	err = r.MarkSent(ctx, "1")
	var wErr *dedup.StoreWriteError
	require.True(t, errors.As(err, &wErr))
}

func TestDedupRepo_ClosedStoreFailsTyped(t *testing.T) {
	ctx := context.Background()
	r := NewDedupRepo(Config{Path: MemoryPath}, nil)
	require.NoError(t, r.Init(ctx))

	db := r.db
	require.NoError(t, db.Close())

	_, err := r.IsSent(ctx, "1")
	var qErr *dedup.StoreQueryError
	require.True(t, errors.As(err, &qErr))

	err = r.MarkSent(ctx, "1")
	var wErr *dedup.StoreWriteError
	require.True(t, errors.As(err, &wErr))
}

func TestDedupRepo_CloseWhileInUse(t *testing.T) {
	ctx := context.Background()
	r := NewDedupRepo(Config{Path: MemoryPath, QueryTimeout: time.Second}, nil)
	require.NoError(t, r.Init(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := strconv.Itoa(i*100 + j)
				if err := r.MarkSent(ctx, id); err != nil {
					var wErr *dedup.StoreWriteError
					assert.True(t, errors.As(err, &wErr))
				}
				if _, err := r.IsSent(ctx, id); err != nil {
					var qErr *dedup.StoreQueryError
					assert.True(t, errors.As(err, &qErr))
				}
			}
		}(i)
	}
	require.NoError(t, r.Close())
	wg.Wait()

	_, err := r.IsSent(ctx, "1")
	var qErr *dedup.StoreQueryError
	require.True(t, errors.As(err, &qErr))
	require.NoError(t, r.Close())
}
