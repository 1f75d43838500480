package poll

import (
	"context"
	"time"
)

// Clock abstracts time observation and sleeping so the polling loop can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is canceled, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock is the production Clock backed by the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
