package relay_config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Source.Token = "gh"
	cfg.Sink.Telegram.Token = "tg"
	cfg.Sink.Telegram.ChatID = "42"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Poll.Interval)
	assert.Equal(t, 50, cfg.Poll.PageSize)
	assert.Equal(t, 20, cfg.Poll.MaxPages)
	assert.Equal(t, 5, cfg.Store.MaxConns)
	assert.Equal(t, "sqlite://./data/notify.db", cfg.Store.DSN)
	assert.Equal(t, 15*time.Second, cfg.Source.Timeout)
	assert.Equal(t, SinkTelegram, cfg.Sink.Kind)
	assert.Equal(t, []string{"localhost:9094"}, cfg.Sink.Kafka.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
poll:
  interval: 15s
store:
  dsn: postgres://u:p@db:5432/relay
source:
  token: from-file
sink:
  kind: kafka
  kafka:
    topic: gh.events
`), 0o600))
	t.Setenv("SOURCE_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "postgres://u:p@db:5432/relay", cfg.Store.DSN)
	assert.Equal(t, "from-env", cfg.Source.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, SinkKafka, cfg.Sink.Kind)
	assert.Equal(t, "gh.events", cfg.Sink.Kafka.Topic)
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", " gh-legacy ")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-legacy")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("DATABASE_URL", "postgres://u@h/db")
	t.Setenv("POLL_INTERVAL_SECONDS", "30")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gh-legacy", cfg.Source.Token)
	assert.Equal(t, "tg-legacy", cfg.Sink.Telegram.Token)
	assert.Equal(t, "-100", cfg.Sink.Telegram.ChatID)
	assert.Equal(t, "postgres://u@h/db", cfg.Store.DSN)
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 7*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 7*time.Second, cfg.Sink.Telegram.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyEnvPrecedence(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "legacy")
	t.Setenv("SOURCE_TOKEN", "nested")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nested", cfg.Source.Token)
}

func TestLoad_LegacySecondsInvalid(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "soon")

	_, err := Load("")
	var cErr *ConfigError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "POLL_INTERVAL_SECONDS", cErr.Field)
}

func TestValidate_ZeroLegacyInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "0")
	cfg := validConfig(t)

	var cErr *ConfigError
	require.True(t, errors.As(cfg.Validate(), &cErr))
	assert.Equal(t, "poll.interval", cErr.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())

	cases := []struct {
		field  string
		mutate func(*Config)
	}{
		{"poll.interval", func(c *Config) { c.Poll.Interval = 0 }},
		{"poll.page_size", func(c *Config) { c.Poll.PageSize = 0 }},
		{"poll.max_pages", func(c *Config) { c.Poll.MaxPages = -1 }},
		{"store.dsn", func(c *Config) { c.Store.DSN = " " }},
		{"source.timeout", func(c *Config) { c.Source.Timeout = 0 }},
		{"source.token", func(c *Config) { c.Source.Token = "" }},
		{"sink.telegram.chat_id", func(c *Config) { c.Sink.Telegram.ChatID = "" }},
		{"sink.telegram.timeout", func(c *Config) { c.Sink.Telegram.Timeout = -time.Second }},
		{"sink.kafka.topic", func(c *Config) { c.Sink.Kind = SinkKafka; c.Sink.Kafka.Topic = "" }},
		{"sink.kafka.brokers", func(c *Config) { c.Sink.Kind = SinkKafka; c.Sink.Kafka.Brokers = nil }},
		{"sink.kind", func(c *Config) { c.Sink.Kind = "slack" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)

			var cErr *ConfigError
			require.True(t, errors.As(cfg.Validate(), &cErr))
			assert.Equal(t, tc.field, cErr.Field)
		})
	}
}

func TestResolvePath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "relay.yaml")
	assert.Equal(t, "", ResolvePath(missing, false))
	assert.Equal(t, missing, ResolvePath(missing, true))

	present := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(present, []byte("log:\n  level: warn\n"), 0o600))
	assert.Equal(t, present, ResolvePath(present, false))
}
