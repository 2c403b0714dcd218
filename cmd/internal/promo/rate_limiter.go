package promo

import "time"

// rateLimiter is a sliding-window limiter for one connection.
// It is owned by the session goroutine and needs no locking.
type rateLimiter struct {
	events []time.Time
	limit  int
	window time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = defaultRateEvents
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &rateLimiter{
		events: make([]time.Time, 0, limit+1),
		limit:  limit,
		window: window,
	}
}

// allow reports whether an event at now is permitted and records it if so.
func (r *rateLimiter) allow(now time.Time) bool {
	cut := now.Add(-r.window)
	kept := r.events[:0]
	for _, t := range r.events {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	r.events = kept

	if len(r.events) >= r.limit {
		return false
	}
	r.events = append(r.events, now)
	return true
}
