package dispatch

import (
	"context"
	"time"
)

// RetryPolicy bounds delivery attempts per message. Every attempt after
// the first waits Delay beforehand.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       500 * time.Millisecond,
}

// Sleeper abstracts the inter-attempt pause so tests can skip it.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type clockSleeper struct{}

func NewClockSleeper() Sleeper { return clockSleeper{} }

func (clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
