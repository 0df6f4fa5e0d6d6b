package port

import (
	"context"
	"time"
)

// AttemptStore keeps timestamped attempts per key for sliding-window throttling
// of signin, signup and password reset requests. A window covers
// (reference-window, reference].
type AttemptStore interface {
	// TrimWindow discards attempts that fell out of the window.
	TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	// OldestAttempt reports false when the window is empty.
	OldestAttempt(ctx context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
