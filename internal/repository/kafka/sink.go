package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

var _ notification.Sender = (*Sink)(nil)

type publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Payload is the JSON value written for every forwarded notification.
type Payload struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Sink forwards messages to a kafka topic keyed by notification id.
type Sink struct {
	p   publisher
	now func() time.Time
}

func NewSink(p publisher, now func() time.Time) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{p: p, now: now}
}

// BootstrapSink makes sure the topic exists and returns a sink writing to it.
func BootstrapSink(ctx context.Context, brokers []string, topic string, log *zap.Logger) (*Sink, *Producer) {
	_ = EnsureTopic(ctx, brokers, TopicOptions{
		Name:              topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, log)

	prod := NewProducer(brokers, topic).WithLogger(log)
	return NewSink(prod, nil), prod
}

func EncodePayload(msg notification.Message, at time.Time) ([]byte, error) {
	return json.Marshal(Payload{ID: msg.NotificationID, Text: msg.Text, SentAt: at.UTC()})
}

func (s *Sink) Send(ctx context.Context, msg notification.Message) error {
	value, err := EncodePayload(msg, s.now())
	if err != nil {
		return &notification.SendError{Err: fmt.Errorf("encode payload: %w", err)}
	}
	if err := s.p.Publish(ctx, []byte(msg.NotificationID), value); err != nil {
		return &notification.SendError{Err: err}
	}
	return nil
}
