package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/NordCoder/ghrelay/internal/domain/dedup"
	"github.com/NordCoder/ghrelay/internal/obs"
)

type State int32

const (
	StateIdle State = iota
	StatePolling
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

type Config struct {
	Interval      time.Duration
	ShutdownGrace time.Duration
}

type Runner struct {
	log   *zap.Logger
	fetch BatchFetcher
	disp  *Dispatcher
	store dedup.Store
	cfg   Config
	m     metrics

	state   atomic.Int32
	onState func(State)
}

func NewRunner(log *zap.Logger, f BatchFetcher, d *Dispatcher, st dedup.Store, cfg Config, reg prometheus.Registerer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Runner{
		log:   log.With(zap.String("component", "relay.runner")),
		fetch: f,
		disp:  d,
		store: st,
		cfg:   cfg,
		m:     newMetrics(reg),
	}
}

func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	if r.onState != nil {
		r.onState(s)
	}
}

// Run polls until ctx is cancelled. It always returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("relay started", zap.Duration("interval", r.cfg.Interval))
	defer r.setState(StateStopped)

	var wm Watermark
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.setState(StatePolling)
		next, stopped := r.awaitCycle(ctx, wm)
		if stopped {
			r.log.Info("relay stopped while polling")
			return ctx.Err()
		}
		wm = next

		r.setState(StateSleeping)
		if !sleep(ctx, r.cfg.Interval) {
			r.log.Info("relay stopped while sleeping", zap.Stringer("watermark", wm))
			return ctx.Err()
		}
	}
}

// RunCycle performs one fetch and dispatch pass and returns the watermark for
// the next pass. On any error the watermark comes back unchanged.
func (r *Runner) RunCycle(ctx context.Context, wm Watermark) (Watermark, CycleResult, error) {
	start := time.Now()
	defer func() { r.m.cycleDur.Observe(time.Since(start).Seconds()) }()

	ctx, span := otel.Tracer("relay.runner").Start(ctx, "relay.cycle")
	defer span.End()
	log := obs.WithTrace(ctx, r.log).With(
		zap.String("cycle_id", uuid.NewString()),
		zap.Stringer("since", wm),
	)

	items, err := r.fetch.FetchSince(ctx, wm.Since())
	if err != nil {
		r.m.cycles.WithLabelValues("fetch_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		log.Warn("fetch failed, cycle abandoned", zap.Error(err))
		return wm, CycleResult{}, err
	}
	r.m.fetched.Add(float64(len(items)))

	res, err := r.disp.ProcessCycle(ctx, items, r.store)
	r.m.forwarded.Add(float64(res.Forwarded))
	r.m.sendErrors.Add(float64(res.Failed))
	span.SetAttributes(
		attribute.Int("relay.fetched", res.Fetched),
		attribute.Int("relay.forwarded", res.Forwarded),
		attribute.Int("relay.failed", res.Failed),
	)
	if err != nil {
		r.m.cycles.WithLabelValues("store_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "dedup store failure")
		log.Error("dedup store failure, watermark kept", zap.Error(err), zap.Int("forwarded", res.Forwarded))
		return wm, res, err
	}

	next := wm.Advance(res.MaxUpdatedAt)
	if next.IsSet() {
		r.m.watermark.Set(float64(next.at.Unix()))
	}

	outcome := "ok"
	if res.Failed > 0 {
		outcome = "partial"
	}
	r.m.cycles.WithLabelValues(outcome).Inc()

	fields := []zap.Field{
		zap.Int("fetched", res.Fetched),
		zap.Int("forwarded", res.Forwarded),
		zap.Int("failed", res.Failed),
		zap.Int("skipped_read", res.SkippedRead),
		zap.Int("duplicates", res.Duplicates),
		zap.Stringer("watermark", next),
	}
	if res.Failed > 0 {
		log.Warn("cycle finished with send failures", fields...)
	} else {
		log.Info("cycle finished", fields...)
	}
	return next, res, nil
}
