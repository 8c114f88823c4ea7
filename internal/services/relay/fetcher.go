package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

const (
	DefaultPageSize = 50
	DefaultMaxPages = 20
)

type BatchFetcher interface {
	FetchSince(ctx context.Context, since *time.Time) ([]notification.Notification, error)
}

// Fetcher pulls every page newer than a watermark, up to MaxPages pages.
type Fetcher struct {
	src      notification.Source
	pageSize int
	maxPages int
	log      *zap.Logger
}

func NewFetcher(src notification.Source, pageSize, maxPages int, log *zap.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		src:      src,
		pageSize: pageSize,
		maxPages: maxPages,
		log:      log.With(zap.String("component", "relay.fetcher")),
	}
}

// FetchSince returns all items updated at or after since, in fetch order.
// A failing page discards everything fetched so far.
func (f *Fetcher) FetchSince(ctx context.Context, since *time.Time) ([]notification.Notification, error) {
	var out []notification.Notification
	for page := 1; page <= f.maxPages; page++ {
		items, err := f.src.ListNotifications(ctx, notification.ListOptions{
			Since:   since,
			Page:    page,
			PerPage: f.pageSize,
		})
		if err != nil {
			return nil, &notification.FetchError{Page: page, Err: err}
		}
		out = append(out, items...)
		if len(items) < f.pageSize {
			return out, nil
		}
	}

	f.log.Warn("page cap reached, remaining pages left for the next cycle",
		zap.Int("max_pages", f.maxPages),
		zap.Int("fetched", len(out)),
	)
	return out, nil
}
