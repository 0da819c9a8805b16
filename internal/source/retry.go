package source

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
)

// Throttle records a backoff-until deadline after an upstream 429 so that
// subsequent unrelated calls within the process fail fast instead of issuing
// a doomed request. Cooperative self-throttling, not a distributed limiter;
// each source keeps its own.
type Throttle struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func NewThrottle() *Throttle { return &Throttle{now: time.Now} }

// BlockFor extends the deadline to now+d. Shorter deadlines never shrink an
// existing one.
func (t *Throttle) BlockFor(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u := t.now().Add(d); u.After(t.until) {
		t.until = u
	}
}

// Blocked returns the remaining cooldown, if any.
func (t *Throttle) Blocked() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rem := t.until.Sub(t.now()); rem > 0 {
		return rem, true
	}
	return 0, false
}

// Clear lifts the cooldown (a call got through).
func (t *Throttle) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.until = time.Time{}
}

// Retryer wraps an external fetch with bounded retries and exponential
// backoff. Only transient failures (429, 5xx, transport errors) are retried;
// everything else propagates on the first attempt.
type Retryer struct {
	// MaxRetries is the total attempt budget, default 3.
	MaxRetries int
	// Base is the backoff base, default 1s; delay is Base * 2^attempt.
	Base time.Duration
	// Throttle is the optional shared 429 cooldown for this source.
	Throttle *Throttle
	// Sleep defaults to time.Sleep; tests inject a recorder.
	Sleep func(time.Duration)
}

// Do runs fn until it succeeds or the retry budget is spent, returning the
// last error. While the Throttle is in cooldown it fails fast with a
// rate-limited error without calling fn at all.
func (r Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	maxAttempts := r.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRetries
	}
	base := r.Base
	if base <= 0 {
		base = defaultBaseBackoff
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	if r.Throttle != nil {
		if rem, blocked := r.Throttle.Blocked(); blocked {
			return &Error{Kind: KindRateLimited, RetryAfter: rem, Msg: "cooling down after 429"}
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			if r.Throttle != nil {
				r.Throttle.Clear()
			}
			return nil
		}
		var se *Error
		if !errors.As(lastErr, &se) || !se.Transient() {
			return lastErr
		}
		delay := time.Duration(1<<attempt) * base
		if se.Kind == KindRateLimited && r.Throttle != nil {
			cooldown := se.RetryAfter
			if cooldown <= 0 {
				cooldown = delay
			}
			r.Throttle.BlockFor(cooldown)
		}
		if attempt == maxAttempts-1 {
			break
		}
		sleep(delay)
	}
	return lastErr
}
