//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/ghrelay/internal/repository/store"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "redis", hostOf(t, cfg.RedisURL), 30*time.Second)

	st, err := store.Open(cfg.RedisURL, store.Options{RedisKeyPrefix: "ghrelay:it:"})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.Init(ctx))
	defer st.Close()

	id := RandID()
	sent, err := st.IsSent(ctx, id)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, st.MarkSent(ctx, id))
	require.NoError(t, st.MarkSent(ctx, id))
	sent, err = st.IsSent(ctx, id)
	require.NoError(t, err)
	assert.True(t, sent)
}
