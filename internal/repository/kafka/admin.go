package kafka

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicOptions struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

// EnsureTopic creates the topic through the cluster controller and waits until
// its partitions are visible. An already existing topic is not an error.
func EnsureTopic(ctx context.Context, brokers []string, opts TopicOptions, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	if opts.NumPartitions <= 0 {
		opts.NumPartitions = 1
	}
	if opts.ReplicationFactor <= 0 {
		opts.ReplicationFactor = 1
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}
	log = log.With(zap.String("topic", opts.Name))

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.Warn("kafka dial failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Warn("kafka controller lookup failed", zap.Error(err))
		return err
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		log.Warn("kafka dial controller failed", zap.Error(err))
		return err
	}
	defer cc.Close()

	if err := cc.CreateTopics(kafka.TopicConfig{
		Topic:             opts.Name,
		NumPartitions:     opts.NumPartitions,
		ReplicationFactor: opts.ReplicationFactor,
	}); err != nil {
		log.Debug("create topic (maybe exists)", zap.Error(err))
	}

	wctx, cancel := context.WithTimeout(ctx, opts.MaxWait)
	defer cancel()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if ps, err := conn.ReadPartitions(opts.Name); err == nil && len(ps) > 0 {
			log.Info("topic ready", zap.Int("partitions", len(ps)))
			return nil
		}
		select {
		case <-wctx.Done():
			log.Warn("topic not confirmed ready in time")
			return nil
		case <-tick.C:
		}
	}
}
