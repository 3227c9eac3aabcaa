package orchestrator

import (
	"context"
	"time"
)

// Clock abstracts time so the pipeline's pacing is testable.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is cancelled, whichever is first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall-clock implementation used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
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
