package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func item(id string, unread bool, at time.Time) notification.Notification {
	return notification.Notification{
		ID:          id,
		Unread:      unread,
		UpdatedAt:   at,
		Repository:  "octo/repo",
		SubjectType: "PullRequest",
		Reason:      "review_requested",
		Title:       "title " + id,
	}
}

type memStore struct {
	mu       sync.Mutex
	sent     map[string]bool
	queryErr error
	writeErr error
	marks    []string
}

func newMemStore() *memStore { return &memStore{sent: map[string]bool{}} }

func (s *memStore) Init(context.Context) error { return nil }
func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) IsSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return false, s.queryErr
	}
	return s.sent[id], nil
}

func (s *memStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.sent[id] = true
	s.marks = append(s.marks, id)
	return nil
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []notification.Message
	failOn map[string]error
}

func (r *recordingSender) Send(_ context.Context, m notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failOn[m.NotificationID]; ok {
		return err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingSender) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.NotificationID)
	}
	return out
}

// pagedSource serves pages from a fixed slice and records every request.
type pagedSource struct {
	mu    sync.Mutex
	pages [][]notification.Notification
	err   error
	errAt int
	calls []notification.ListOptions
}

func (p *pagedSource) ListNotifications(_ context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, opts)
	if p.err != nil && (p.errAt == 0 || p.errAt == opts.Page) {
		return nil, p.err
	}
	if opts.Page-1 >= len(p.pages) {
		return nil, nil
	}
	return p.pages[opts.Page-1], nil
}

func (p *pagedSource) requests() []notification.ListOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notification.ListOptions(nil), p.calls...)
}

var errBoom = errors.New("boom")
