package relay

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

type CycleResult struct {
	Fetched     int
	Forwarded   int
	Failed      int
	SkippedRead int
	Duplicates  int
	// MaxUpdatedAt is taken over every fetched item, read or not. Nil for an empty batch.
	MaxUpdatedAt *time.Time
}

type Dispatcher struct {
	out notification.Sender
	fmt Formatter
	log *zap.Logger
}

func NewDispatcher(out notification.Sender, f Formatter, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{out: out, fmt: f, log: log.With(zap.String("component", "relay.dispatcher"))}
}

func MaxUpdatedAt(items []notification.Notification) *time.Time {
	if len(items) == 0 {
		return nil
	}
	latest := items[0].UpdatedAt
	for _, n := range items[1:] {
		if n.UpdatedAt.After(latest) {
			latest = n.UpdatedAt
		}
	}
	return &latest
}

// ProcessCycle forwards unread, not yet sent items oldest first. A failed send
// is logged and skipped. A dedup store failure stops the batch and is returned.
func (d *Dispatcher) ProcessCycle(ctx context.Context, items []notification.Notification, st dedup.Store) (CycleResult, error) {
	res := CycleResult{Fetched: len(items), MaxUpdatedAt: MaxUpdatedAt(items)}

	ordered := make([]notification.Notification, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UpdatedAt.Before(ordered[j].UpdatedAt)
	})

	tr := otel.Tracer("relay.dispatcher")
	for _, n := range ordered {
		if !n.Unread {
			res.SkippedRead++
			continue
		}

		sent, err := st.IsSent(ctx, n.ID)
		if err != nil {
			var qErr *dedup.StoreQueryError
			if !errors.As(err, &qErr) {
				err = &dedup.StoreQueryError{ID: n.ID, Err: err}
			}
			return res, err
		}
		if sent {
			res.Duplicates++
			continue
		}

		sctx, span := tr.Start(ctx, "relay.forward",
			trace.WithAttributes(
				attribute.String("notification.id", n.ID),
				attribute.String("notification.repository", n.Repository),
			),
		)
		if err := d.out.Send(sctx, notification.Message{NotificationID: n.ID, Text: d.fmt.Format(n)}); err != nil {
			span.RecordError(err)
			span.End()
			res.Failed++
			d.logSendFailure(n, err)
			continue
		}
		span.End()
		res.Forwarded++

		if err := st.MarkSent(ctx, n.ID); err != nil {
			var wErr *dedup.StoreWriteError
			if !errors.As(err, &wErr) {
				err = &dedup.StoreWriteError{ID: n.ID, Err: err}
			}
			return res, err
		}
		d.log.Debug("forwarded", zap.String("notification_id", n.ID), zap.String("repository", n.Repository))
	}
	return res, nil
}

func (d *Dispatcher) logSendFailure(n notification.Notification, err error) {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("repository", n.Repository),
		zap.Error(err),
	}
	var sendErr *notification.SendError
	if errors.As(err, &sendErr) && sendErr.Status != 0 {
		fields = append(fields, zap.Int("status", sendErr.Status), zap.String("body", sendErr.Body))
	}
	d.log.Warn("forward failed, will not mark sent", fields...)
}
