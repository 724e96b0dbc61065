package temporalx

import (
	"context"
	"time"

	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
)

// Backoff retries startup operations against a Temporal frontend that may
// still be coming up. Delays double from Base up to Max; MaxWait <= 0 means a
// single attempt.
type Backoff struct {
	MaxWait time.Duration
	Base    time.Duration
	Max     time.Duration
}

// BackoffFromEnv reads <prefix>_MAX_WAIT_SECONDS, <prefix>_BACKOFF_MS and
// <prefix>_BACKOFF_MAX_MS.
func BackoffFromEnv(prefix string, defMaxWaitSeconds int) Backoff {
	return Backoff{
		MaxWait: envutil.Seconds(prefix+"_MAX_WAIT_SECONDS", defMaxWaitSeconds),
		Base:    millis(prefix+"_BACKOFF_MS", 250),
		Max:     millis(prefix+"_BACKOFF_MAX_MS", 5000),
	}
}

func millis(key string, def int) time.Duration {
	n := envutil.Int(key, def)
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
}

// Delay is the sleep before the attempt after the given one.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	if d <= 0 {
		d = 250 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Do runs fn until it succeeds, returns an error retryable rejects, the
// deadline passes or ctx ends. The last error is returned. onRetry may be nil.
func (b Backoff) Do(ctx context.Context, fn func(attempt int) error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	deadline := time.Now().Add(b.MaxWait)
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if b.MaxWait <= 0 || time.Now().After(deadline) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		t := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
