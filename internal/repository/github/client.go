package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	maxErrBody     = 2048
)

var _ notification.Source = (*Client)(nil)

type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	IncludeRead bool
}

// APIError is a non-2xx answer from the notifications endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: status %d: %s", e.Status, e.Body)
}

type Client struct {
	c       *http.Client
	baseURL string
	token   string
	all     bool
	log     *zap.Logger
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = NewHTTPClient(cfg.Timeout)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		c:       hc,
		baseURL: base,
		token:   cfg.Token,
		all:     cfg.IncludeRead,
		log:     zap.L().With(zap.String("component", "github.client")),
	}
}

func (cl *Client) WithLogger(l *zap.Logger) *Client {
	if l == nil {
		return cl
	}
	cp := *cl
	cp.log = l.With(zap.String("component", "github.client"))
	return &cp
}

type apiNotification struct {
	ID         string     `json:"id"`
	Unread     bool       `json:"unread"`
	Reason     string     `json:"reason"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Subject    apiSubject `json:"subject"`
	Repository apiRepo    `json:"repository"`
}

type apiSubject struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

type apiRepo struct {
	FullName string `json:"full_name"`
}

func (cl *Client) ListNotifications(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("per_page", strconv.Itoa(opts.PerPage))
	if opts.Since != nil {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if cl.all {
		q.Set("all", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.baseURL+"/notifications?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var raw []apiNotification
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(raw))
	for _, n := range raw {
		out = append(out, notification.Notification{
			ID:          n.ID,
			Unread:      n.Unread,
			UpdatedAt:   n.UpdatedAt.UTC(),
			Repository:  n.Repository.FullName,
			SubjectType: n.Subject.Type,
			Reason:      n.Reason,
			Title:       n.Subject.Title,
		})
	}
	cl.log.Debug("page fetched",
		zap.Int("page", opts.Page),
		zap.Int("items", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
