package taskrt

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ElapsedClock is the monotonic time source shared by every task: a single
// epoch, set once, from which elapsed time and periodic wakeups are measured.
//
// The zero value is not usable, see Runtime.Clock.
type ElapsedClock struct {
	clock clock.Clock
	mu    sync.RWMutex
	epoch time.Time
	set   bool
}

func newElapsedClock(c clock.Clock) *ElapsedClock {
	return &ElapsedClock{clock: c}
}

// Init sets the epoch to the current time. It must be called exactly once,
// before any task starts, subsequent calls return ErrAlreadyInitialized.
func (x *ElapsedClock) Init() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.set {
		return ErrAlreadyInitialized
	}
	x.epoch = x.clock.Now()
	x.set = true
	return nil
}

// Epoch returns the epoch, or ErrNotInitialized.
func (x *ElapsedClock) Epoch() (time.Time, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.set {
		return time.Time{}, ErrNotInitialized
	}
	return x.epoch, nil
}

// Initialized reports whether Init has been called.
func (x *ElapsedClock) Initialized() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.set
}

// Elapsed returns the time since the epoch, never negative. It returns 0
// prior to Init.
func (x *ElapsedClock) Elapsed() time.Duration {
	epoch, err := x.Epoch()
	if err != nil {
		return 0
	}
	if d := x.clock.Since(epoch); d > 0 {
		return d
	}
	return 0
}

// ElapsedNs returns Elapsed in nanoseconds.
func (x *ElapsedClock) ElapsedNs() uint64 {
	return uint64(x.Elapsed())
}

// Now returns the current time of the underlying clock.
func (x *ElapsedClock) Now() time.Time {
	return x.clock.Now()
}

// Sleep suspends the calling goroutine for at least d.
func (x *ElapsedClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	x.clock.Sleep(d)
}

// SleepUntil suspends the calling goroutine until t, returning immediately if
// t is not in the future. The only error is ctx.Err(), if ctx is done first.
func (x *ElapsedClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := t.Sub(x.clock.Now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := x.clock.Timer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
