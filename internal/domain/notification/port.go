package notification

import "context"

// Source is the remote feed, one page per call.
type Source interface {
	ListNotifications(ctx context.Context, opts ListOptions) ([]Notification, error)
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
