package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

func page(prefix string, n int) []notification.Notification {
	out := make([]notification.Notification, n)
	for i := range out {
		out[i] = item(fmt.Sprintf("%s-%d", prefix, i), true, t0.Add(time.Duration(i)*time.Second))
	}
	return out
}

func TestFetcher_StopsOnShortPage(t *testing.T) {
	src := &pagedSource{pages: [][]notification.Notification{page("a", 3), page("b", 3), page("c", 1)}}
	f := NewFetcher(src, 3, 10, nil)

	since := t0
	got, err := f.FetchSince(context.Background(), &since)
	require.NoError(t, err)
	assert.Len(t, got, 7)

	reqs := src.requests()
	require.Len(t, reqs, 3)
	for i, r := range reqs {
		assert.Equal(t, i+1, r.Page)
		assert.Equal(t, 3, r.PerPage)
		require.NotNil(t, r.Since)
		assert.Equal(t, since, *r.Since)
	}
}

func TestFetcher_EmptyFirstPage(t *testing.T) {
	src := &pagedSource{}
	got, err := NewFetcher(src, 50, 20, nil).FetchSince(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Len(t, src.requests(), 1)
	assert.Nil(t, src.requests()[0].Since)
}

func TestFetcher_PageCap(t *testing.T) {
	src := &pagedSource{pages: [][]notification.Notification{page("a", 2), page("b", 2), page("c", 2), page("d", 2)}}
	core, logs := observer.New(zap.WarnLevel)
	f := NewFetcher(src, 2, 3, zap.New(core))

	got, err := f.FetchSince(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 6)
	assert.Len(t, src.requests(), 3)
	assert.Equal(t, 1, logs.FilterMessageSnippet("page cap reached").Len())
}

func TestFetcher_ErrorDiscardsBatch(t *testing.T) {
	src := &pagedSource{
		pages: [][]notification.Notification{page("a", 2), page("b", 2)},
		err:   errBoom,
		errAt: 2,
	}
	got, err := NewFetcher(src, 2, 5, nil).FetchSince(context.Background(), nil)
	assert.Nil(t, got)

	var fe *notification.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Page)
	assert.ErrorIs(t, err, errBoom)
}

func TestFetcher_Defaults(t *testing.T) {
	f := NewFetcher(&pagedSource{}, 0, -1, nil)
	assert.Equal(t, DefaultPageSize, f.pageSize)
	assert.Equal(t, DefaultMaxPages, f.maxPages)
}
