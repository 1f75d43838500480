// Package poll repeatedly invokes a caller-supplied probe at a fixed cadence
// until it succeeds or a total timeout elapses.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Probe is a caller-supplied readiness check. It returns an error while the
// awaited condition is not yet true and nil once it is. The probe is opaque
// to this package; it is invoked serially, never concurrently with itself.
type Probe func(ctx context.Context) error

const (
	// DefaultInterval is the cadence between probe attempts.
	DefaultInterval = 200 * time.Millisecond
	// DefaultTimeout bounds the total wait when the caller does not set one.
	DefaultTimeout = 30 * time.Second
)

// Options tunes a single Until call. The zero value is usable; unset fields
// fall back to the defaults above and the wall clock.
type Options struct {
	// Interval is the pause between consecutive probe attempts.
	Interval time.Duration
	// Timeout bounds the total elapsed time across all attempts. The deadline
	// is checked before each attempt, so the actual overrun can reach one
	// extra interval past the nominal timeout.
	Timeout time.Duration
	// Clock supplies time and sleeping. Tests inject a fake here.
	Clock Clock
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	return o
}

// TimeoutError reports that no probe attempt succeeded within the timeout
// window. It carries the last observed probe failure for diagnostics.
type TimeoutError struct {
	// Timeout is the nominal budget that was exceeded.
	Timeout time.Duration
	// Attempts is the number of probe invocations that were made.
	Attempts int
	// LastErr is the failure returned by the most recent probe attempt.
	LastErr error
}

func (e *TimeoutError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("polling exceeded %s budget with no attempts made", e.Timeout)
	}
	return fmt.Sprintf("polling exceeded %s budget after %d attempts: %v", e.Timeout, e.Attempts, e.LastErr)
}

// Unwrap exposes the last probe failure to errors.Is and errors.As.
func (e *TimeoutError) Unwrap() error { return e.LastErr }

// IsTimeout reports whether err is (or wraps) a poll timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Until invokes probe on a fixed interval until it succeeds, the timeout
// elapses, or ctx is canceled.
//
// The deadline check happens before each attempt, never mid-attempt
// ("check-then-fire"): with interval I and timeout T the call settles within
// [T, T+I) when the probe never succeeds. Attempts are strictly sequential,
// so the result is decided exactly once and no probe invocation outlives the
// return.
func Until(ctx context.Context, probe Probe, opts Options) error {
	if probe == nil {
		return errors.New("poll: probe must not be nil")
	}
	o := opts.withDefaults()

	start := o.Clock.Now()
	attempts := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.Clock.Now().Sub(start) >= o.Timeout {
			return &TimeoutError{Timeout: o.Timeout, Attempts: attempts, LastErr: lastErr}
		}

		attempts++
		err := probe(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if err := o.Clock.Sleep(ctx, o.Interval); err != nil {
			return err
		}
	}
}
