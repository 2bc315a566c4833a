package services

import (
	"context"
	"errors"
	"net"
	"time"
)

// Backoff retries a blocking call with exponentially growing delays. The zero
// value makes a single attempt.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration

	// Classify reports whether err deserves another attempt and, optionally,
	// a delay requested by the remote side. Nil means Retryable.
	Classify func(err error) (hint time.Duration, retry bool)
	// Sleep waits between attempts. Nil means SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do calls fn until it succeeds, the error is not retryable, attempts run
// out or ctx ends. It returns how many calls were made and the last error.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	classify := b.Classify
	if classify == nil {
		classify = func(err error) (time.Duration, bool) { return 0, Retryable(err) }
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	calls := 0
	for {
		if err := ctx.Err(); err != nil {
			return calls, err
		}
		calls++
		err := fn(ctx)
		if err == nil {
			return calls, nil
		}
		if calls >= b.Attempts || ctx.Err() != nil {
			return calls, err
		}
		hint, retry := classify(err)
		if !retry {
			return calls, err
		}
		wait := b.Delay(calls)
		if hint > 0 {
			wait = b.clamp(hint)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return calls, sleepErr
		}
	}
}

// Delay is the pause after the given 1-based call: Base, 2*Base, 4*Base and
// so on, never above Max.
func (b Backoff) Delay(call int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < call; i++ {
		if b.Max > 0 && d >= b.Max {
			break
		}
		d *= 2
	}
	return b.clamp(d)
}

func (b Backoff) clamp(d time.Duration) time.Duration {
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Retryable treats transient markers, deadline expiry and network timeouts as
// worth another attempt. Cancellation never is.
func Retryable(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SleepContext waits for d or until ctx ends.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
