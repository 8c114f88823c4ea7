package relay_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Flat variable names kept working for existing deployments.
var legacyEnv = map[string]string{
	"source.token":          "GITHUB_TOKEN",
	"sink.telegram.token":   "TELEGRAM_BOT_TOKEN",
	"sink.telegram.chat_id": "TELEGRAM_CHAT_ID",
	"store.dsn":             "DATABASE_URL",
}

var legacySecondsEnv = []struct {
	env  string
	keys []string
}{
	{"POLL_INTERVAL_SECONDS", []string{"poll.interval"}},
	{"HTTP_TIMEOUT_SECONDS", []string{"source.timeout", "sink.telegram.timeout"}},
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "ghrelay")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("poll.interval", "60s")
	v.SetDefault("poll.page_size", 50)
	v.SetDefault("poll.max_pages", 20)
	v.SetDefault("poll.shutdown_grace", "10s")

	v.SetDefault("store.dsn", "sqlite://./data/notify.db")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("store.query_timeout", "2s")
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("store.redis_key_prefix", "ghrelay:sent:")

	v.SetDefault("source.base_url", "https://api.github.com")
	v.SetDefault("source.token", "")
	v.SetDefault("source.timeout", "15s")
	v.SetDefault("source.include_read", false)
	v.SetDefault("source.link_base", "https://github.com/notifications/threads/")

	v.SetDefault("sink.kind", SinkTelegram)
	v.SetDefault("sink.telegram.base_url", "https://api.telegram.org")
	v.SetDefault("sink.telegram.token", "")
	v.SetDefault("sink.telegram.chat_id", "")
	v.SetDefault("sink.telegram.timeout", "15s")
	v.SetDefault("sink.telegram.rate_per_sec", 1.0)
	v.SetDefault("sink.telegram.burst", 3)
	v.SetDefault("sink.kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("sink.kafka.topic", "ghrelay.notifications")

	v.SetDefault("server.metrics_addr", ":8090")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")
	v.SetDefault("otel.service_name", "ghrelay")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv lets the flat names fill keys the nested names left unset.
func bindLegacyEnv(v *viper.Viper) error {
	for key, env := range legacyEnv {
		if nestedEnvSet(key) {
			continue
		}
		if raw := strings.TrimSpace(os.Getenv(env)); raw != "" {
			v.Set(key, raw)
		}
	}
	for _, l := range legacySecondsEnv {
		raw, ok := os.LookupEnv(l.env)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return &ConfigError{Field: l.env, Reason: fmt.Sprintf("invalid seconds %q", raw)}
		}
		for _, key := range l.keys {
			if !nestedEnvSet(key) {
				v.Set(key, time.Duration(n)*time.Second)
			}
		}
	}
	return nil
}

func nestedEnvSet(key string) bool {
	_, ok := os.LookupEnv(strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	return ok
}

// ResolvePath drops a default config path that does not exist so the process
// runs on env alone. A path the user passed explicitly is kept and must exist.
func ResolvePath(path string, explicit bool) string {
	if explicit || path == "" {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
