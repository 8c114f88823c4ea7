package dedup

import "context"

// Store records which notification ids were forwarded.
type Store interface {
	// Init creates the backing structure if it is absent.
	Init(ctx context.Context) error
	IsSent(ctx context.Context, id string) (bool, error)
	// MarkSent is insert-or-ignore: marking a present id is not an error.
	MarkSent(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
