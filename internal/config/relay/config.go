package relay_config

import (
	"fmt"
	"strings"
	"time"
)

const (
	SinkTelegram = "telegram"
	SinkKafka    = "kafka"
)

type AppCfg struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type LogCfg struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type PollCfg struct {
	Interval      time.Duration `mapstructure:"interval"`
	PageSize      int           `mapstructure:"page_size"`
	MaxPages      int           `mapstructure:"max_pages"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type StoreCfg struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int           `mapstructure:"max_conns"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	RedisKeyPrefix  string        `mapstructure:"redis_key_prefix"`
}

type SourceCfg struct {
	BaseURL     string        `mapstructure:"base_url"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IncludeRead bool          `mapstructure:"include_read"`
	LinkBase    string        `mapstructure:"link_base"`
}

type TelegramCfg struct {
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	ChatID     string        `mapstructure:"chat_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	Burst      int           `mapstructure:"burst"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SinkCfg struct {
	Kind     string      `mapstructure:"kind"`
	Telegram TelegramCfg `mapstructure:"telegram"`
	Kafka    KafkaCfg    `mapstructure:"kafka"`
}

type ServerCfg struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTELCfg struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Config struct {
	App    AppCfg    `mapstructure:"app"`
	Log    LogCfg    `mapstructure:"log"`
	Poll   PollCfg   `mapstructure:"poll"`
	Store  StoreCfg  `mapstructure:"store"`
	Source SourceCfg `mapstructure:"source"`
	Sink   SinkCfg   `mapstructure:"sink"`
	Server ServerCfg `mapstructure:"server"`
	OTEL   OTELCfg   `mapstructure:"otel"`
}

// ConfigError names the first invalid key found.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (c *Config) Validate() error {
	switch {
	case c.Poll.Interval <= 0:
		return &ConfigError{Field: "poll.interval", Reason: "must be positive"}
	case c.Poll.PageSize <= 0:
		return &ConfigError{Field: "poll.page_size", Reason: "must be positive"}
	case c.Poll.MaxPages <= 0:
		return &ConfigError{Field: "poll.max_pages", Reason: "must be positive"}
	case c.Poll.ShutdownGrace < 0:
		return &ConfigError{Field: "poll.shutdown_grace", Reason: "must not be negative"}
	case strings.TrimSpace(c.Store.DSN) == "":
		return &ConfigError{Field: "store.dsn", Reason: "is required"}
	case c.Store.MaxConns <= 0:
		return &ConfigError{Field: "store.max_conns", Reason: "must be positive"}
	case c.Source.Timeout <= 0:
		return &ConfigError{Field: "source.timeout", Reason: "must be positive"}
	case strings.TrimSpace(c.Source.Token) == "":
		return &ConfigError{Field: "source.token", Reason: "is required"}
	}

	switch c.Sink.Kind {
	case SinkTelegram:
		t := c.Sink.Telegram
		switch {
		case strings.TrimSpace(t.Token) == "":
			return &ConfigError{Field: "sink.telegram.token", Reason: "is required"}
		case strings.TrimSpace(t.ChatID) == "":
			return &ConfigError{Field: "sink.telegram.chat_id", Reason: "is required"}
		case t.Timeout <= 0:
			return &ConfigError{Field: "sink.telegram.timeout", Reason: "must be positive"}
		case t.RatePerSec < 0:
			return &ConfigError{Field: "sink.telegram.rate_per_sec", Reason: "must not be negative"}
		}
	case SinkKafka:
		if len(c.Sink.Kafka.Brokers) == 0 {
			return &ConfigError{Field: "sink.kafka.brokers", Reason: "at least one broker is required"}
		}
		if strings.TrimSpace(c.Sink.Kafka.Topic) == "" {
			return &ConfigError{Field: "sink.kafka.topic", Reason: "is required"}
		}
	default:
		return &ConfigError{Field: "sink.kind", Reason: fmt.Sprintf("unknown sink %q", c.Sink.Kind)}
	}
	return nil
}
