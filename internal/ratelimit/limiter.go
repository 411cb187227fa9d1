// Package ratelimit implements fixed-window request counting. Windows are
// aligned to wall-clock boundaries, so a client can be admitted up to twice
// the nominal rate across a boundary; that is the accepted trade for cheap
// atomic counters.
package ratelimit

import (
	"context"
	"time"
)

type Policy struct {
	Max    int
	Window time.Duration
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// CounterStore increments the counter for a (key, window) pair atomically
// and reports the post-increment count. Implementations must be safe for
// concurrent use; the window TTL bounds storage.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Limiter struct {
	store CounterStore
	now   func() time.Time
}

func New(store CounterStore) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// NewWithClock is used by tests to pin window boundaries.
func NewWithClock(store CounterStore, now func() time.Time) *Limiter {
	return &Limiter{store: store, now: now}
}

// Allow counts one request against the current window for key. The caller
// decides how to reject; on a denial RetryAfter is the time until the
// window rolls over.
func (l *Limiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(policy.Window)

	count, err := l.store.Incr(ctx, windowKey(key, windowStart), policy.Window)
	if err != nil {
		return Decision{}, err
	}

	if count > int64(policy.Max) {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: windowStart.Add(policy.Window).Sub(now),
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: policy.Max - int(count),
	}, nil
}

func windowKey(key string, windowStart time.Time) string {
	return key + ":" + windowStart.UTC().Format("20060102T150405")
}
