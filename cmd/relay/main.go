package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/ghrelay/internal/config/relay"
	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/domain/notification"
	"github.com/NordCoder/ghrelay/internal/obs"
	"github.com/NordCoder/ghrelay/internal/obs/retry"
	"github.com/NordCoder/ghrelay/internal/repository/github"
	kafkaRepo "github.com/NordCoder/ghrelay/internal/repository/kafka"
	"github.com/NordCoder/ghrelay/internal/repository/store"
	"github.com/NordCoder/ghrelay/internal/repository/telegram"
	"github.com/NordCoder/ghrelay/internal/services/relay"
)

func main() {
	configPath := pflag.String("config", "config/relay.yaml", "path to the yaml config; empty for env only")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the config")
	pflag.Parse()

	// a missing .env is normal outside local runs
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load %s: %v", *envFile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ResolvePath(*configPath, pflag.CommandLine.Changed("config")))
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(obs.LogConfig{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)
	l.Info("starting relay",
		zap.Duration("interval", cfg.Poll.Interval),
		zap.String("store", store.Scheme(cfg.Store.DSN)),
		zap.String("sink", cfg.Sink.Kind),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, obs.OTELConfig{
		Enable:      cfg.OTEL.Enable,
		Endpoint:    cfg.OTEL.OTLPEndpoint,
		ServiceName: cfg.OTEL.ServiceName,
		SampleRatio: cfg.OTEL.SampleRatio,
	})
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// dedup store
	st, err := store.Open(cfg.Store.DSN, store.Options{
		MaxConns:       cfg.Store.MaxConns,
		QueryTimeout:   cfg.Store.QueryTimeout,
		RedisKeyPrefix: cfg.Store.RedisKeyPrefix,
	})
	if err != nil {
		l.Fatal("dedup store", zap.Error(err))
	}
	err = retry.Do(ctx, func() error { return st.Init(ctx) },
		retry.StoreConnectPolicy(cfg.Store.ConnectAttempts, isPermanentInit, l))
	if err != nil {
		l.Fatal("dedup store init", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	// sink
	sender, closeSink := buildSink(ctx, cfg, l)
	defer closeSink()

	src := github.New(github.Config{
		BaseURL:     cfg.Source.BaseURL,
		Token:       cfg.Source.Token,
		Timeout:     cfg.Source.Timeout,
		IncludeRead: cfg.Source.IncludeRead,
	}, nil).WithLogger(l)

	// run metrics server
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, prometheus.DefaultGatherer, st.Ping, l)

	// wiring
	runner := relay.NewRunner(l,
		relay.NewFetcher(src, cfg.Poll.PageSize, cfg.Poll.MaxPages, l),
		relay.NewDispatcher(sender, relay.Formatter{LinkBase: cfg.Source.LinkBase}, l),
		st,
		relay.Config{Interval: cfg.Poll.Interval, ShutdownGrace: cfg.Poll.ShutdownGrace},
		prometheus.DefaultRegisterer,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	select {
	case <-ctx.Done():
		// Run returns once it has observed the signal
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error("runner error", zap.Error(err))
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

func buildSink(ctx context.Context, cfg *config.Config, l *zap.Logger) (notification.Sender, func()) {
	switch cfg.Sink.Kind {
	case config.SinkKafka:
		sink, prod := kafkaRepo.BootstrapSink(ctx, cfg.Sink.Kafka.Brokers, cfg.Sink.Kafka.Topic, l)
		return sink, func() { _ = prod.Close() }
	default:
		tg := cfg.Sink.Telegram
		return telegram.New(telegram.Config{
			BaseURL:    tg.BaseURL,
			Token:      tg.Token,
			ChatID:     tg.ChatID,
			Timeout:    tg.Timeout,
			RatePerSec: tg.RatePerSec,
			Burst:      tg.Burst,
		}, nil).WithLogger(l), func() {}
	}
}

// isPermanentInit stops retrying on failures a reconnect cannot fix.
func isPermanentInit(err error) bool {
	var unsupported *dedup.UnsupportedStoreError
	if errors.As(err, &unsupported) {
		return true
	}
	var initErr *dedup.StoreInitError
	return errors.As(err, &initErr) && initErr.Backend == "sqlite"
}
