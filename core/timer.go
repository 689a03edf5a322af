package core

import (
	"context"
	"math"
	"time"
)

// Timing defaults
const (
	IdleInterval = 500 * time.Millisecond
)

// Clock is the monotonic time source used by the sampler
type Clock interface {
	// Now returns the time elapsed since boot
	Now() time.Duration

	// Sleep suspends the caller for d or until ctx ends
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reads the Go runtime's monotonic clock. On TinyGo targets this
// is backed by the chip's hardware timer.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock starts counting from now
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.boot)
}

func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TimerToUS converts a duration to whole microseconds, saturating at the
// largest value a Done frame can carry
func TimerToUS(d time.Duration) uint32 {
	us := d.Microseconds()
	if us < 0 {
		return 0
	}
	if us > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(us)
}

// RatePeriod returns the tick interval for a sample rate
func RatePeriod(rateHz uint32) time.Duration {
	if rateHz == 0 {
		rateHz = DefaultRateHz
	}
	return time.Second / time.Duration(rateHz)
}
