package relay

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type cycleOutcome struct {
	next Watermark
}

// awaitCycle runs one cycle in the background and returns when it finishes or
// when ctx is cancelled. On cancel the in-flight cycle gets up to the shutdown
// grace to finish; its watermark is discarded either way.
func (r *Runner) awaitCycle(ctx context.Context, wm Watermark) (Watermark, bool) {
	done := make(chan cycleOutcome, 1)
	go func() {
		// the cycle keeps running after ctx is cancelled so a delivered message still gets marked sent
		next, _, _ := r.RunCycle(context.WithoutCancel(ctx), wm)
		done <- cycleOutcome{next: next}
	}()

	select {
	case out := <-done:
		return out.next, false
	case <-ctx.Done():
	}

	if r.cfg.ShutdownGrace <= 0 {
		r.log.Info("shutdown requested, abandoning in-flight cycle")
		return wm, true
	}
	t := time.NewTimer(r.cfg.ShutdownGrace)
	defer t.Stop()
	select {
	case <-done:
		r.log.Info("in-flight cycle finished before shutdown")
	case <-t.C:
		r.log.Warn("in-flight cycle still running after grace, abandoning", zap.Duration("grace", r.cfg.ShutdownGrace))
	}
	return wm, true
}

// sleep reports false when ctx was cancelled before d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
