package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	maxErrBody     = 2048
)

var _ notification.Sender = (*Sender)(nil)

type Config struct {
	BaseURL    string
	Token      string
	ChatID     string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// Sender posts every message to one chat through the Bot API sendMessage method.
type Sender struct {
	c       *http.Client
	url     string
	chatID  string
	limiter *rate.Limiter

	log *zap.Logger
}

func New(cfg Config, hc *http.Client) *Sender {
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Sender{
		c:       hc,
		url:     base + "/bot" + cfg.Token + "/sendMessage",
		chatID:  cfg.ChatID,
		limiter: rate.NewLimiter(limit, burst),
		log:     zap.L().With(zap.String("component", "telegram.sender")),
	}
}

func (s *Sender) WithLogger(l *zap.Logger) *Sender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "telegram.sender"))
	return &cp
}

type sendMessageReq struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (s *Sender) Send(ctx context.Context, msg notification.Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &notification.SendError{Err: fmt.Errorf("rate limit: %w", err)}
	}

	body, err := json.Marshal(sendMessageReq{ChatID: s.chatID, Text: msg.Text, DisableWebPagePreview: true})
	if err != nil {
		return &notification.SendError{Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &notification.SendError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	log := s.log.With(zap.String("notification_id", msg.NotificationID))
	start := time.Now()

	resp, err := s.c.Do(req)
	if err != nil {
		// *url.Error repeats the request URL, which holds the bot token
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = fmt.Errorf("%s sendMessage: %w", uErr.Op, uErr.Err)
		}
		log.Warn("telegram request failed", zap.Error(err))
		return &notification.SendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		log.Warn("telegram rejected message", zap.Int("status", resp.StatusCode))
		return &notification.SendError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug("message sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}
