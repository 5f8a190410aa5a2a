package aggregator

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts = 5
	baseDelay          = 250 * time.Millisecond
	maxDelay           = 8 * time.Second
)

// retrier retries throttled and transient failures with exponential backoff
// and jitter, up to a bounded attempt count.
type retrier struct {
	maxAttempts int
	base        time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func newRetrier(maxAttempts int) *retrier {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &retrier{
		maxAttempts: maxAttempts,
		base:        baseDelay,
		sleep:       sleepCtx,
	}
}

func (r *retrier) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !isRetryable(err) || attempt >= r.maxAttempts {
			return err
		}
		if serr := r.sleep(ctx, r.delay(attempt)); serr != nil {
			return serr
		}
	}
}

func (r *retrier) delay(attempt int) time.Duration {
	// the shift overflows for large attempt counts; a wrapped value is
	// non-positive or far beyond the cap, so both clamp to maxDelay
	d := r.base << (attempt - 1)
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	// half fixed, half jitter, so concurrent workers spread out
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
