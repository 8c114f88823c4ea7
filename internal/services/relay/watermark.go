package relay

import "time"

// watermarkOverlap is how far the next fetch reaches back behind the newest
// item seen. Items re-fetched inside the overlap are dropped by the dedup store.
const watermarkOverlap = time.Second

// Watermark is the lower bound for the next fetch. The zero value is unset and
// means fetch everything available.
type Watermark struct {
	at  time.Time
	set bool
}

func WatermarkAt(t time.Time) Watermark { return Watermark{at: t.UTC(), set: true} }

func (w Watermark) IsSet() bool { return w.set }

// Since returns the value handed to the fetcher, nil when unset.
func (w Watermark) Since() *time.Time {
	if !w.set {
		return nil
	}
	t := w.at
	return &t
}

// Advance returns the watermark after a cycle whose newest item was maxSeen.
// It never moves backwards.
func (w Watermark) Advance(maxSeen *time.Time) Watermark {
	if maxSeen == nil {
		return w
	}
	next := maxSeen.UTC().Add(-watermarkOverlap)
	if w.set && next.Before(w.at) {
		return w
	}
	return Watermark{at: next, set: true}
}

func (w Watermark) String() string {
	if !w.set {
		return "unset"
	}
	return w.at.Format(time.RFC3339Nano)
}
