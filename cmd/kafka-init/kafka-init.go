package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/ghrelay/internal/config/relay"
	kafkaRepo "github.com/NordCoder/ghrelay/internal/repository/kafka"
)

// Creates the kafka sink topic ahead of the relay, for deployments where
// the relay itself has no topic-create rights.
func main() {
	configPath := pflag.String("config", "config/relay.yaml", "path to the yaml config; empty for env only")
	partitions := pflag.Int("partitions", 1, "partition count for a new topic")
	rf := pflag.Int("replication-factor", 1, "replication factor for a new topic")
	pflag.Parse()

	cfg, err := config.Load(config.ResolvePath(*configPath, pflag.CommandLine.Changed("config")))
	if err != nil {
		log.Fatal(err)
	}
	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := kafkaRepo.EnsureTopic(ctx, cfg.Sink.Kafka.Brokers, kafkaRepo.TopicOptions{
		Name:              cfg.Sink.Kafka.Topic,
		NumPartitions:     *partitions,
		ReplicationFactor: *rf,
		MaxWait:           30 * time.Second,
	}, l); err != nil {
		l.Fatal("ensure topic", zap.String("topic", cfg.Sink.Kafka.Topic), zap.Error(err))
	}
	l.Info("kafka-init ok", zap.String("topic", cfg.Sink.Kafka.Topic))
}
