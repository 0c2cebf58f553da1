package taskrt

import (
	"context"
	"fmt"
	"time"
)

// Dispatcher drives cyclic interfaces: it invokes a callback on a fixed grid
// of instants, anchored to the epoch of the runtime's ElapsedClock.
//
// For a given offset and period, invocation k is scheduled at
// epoch + offset + k*period. If an invocation overruns the next instant, the
// next invocation starts immediately, and the following ones return to the
// grid. The grid never shifts, so phase error is bounded by one period,
// regardless of transient overruns.
//
// Each Runtime owns a single Dispatcher, see Runtime.Dispatcher.
type Dispatcher struct {
	rt    *Runtime
	clock *ElapsedClock
}

// Initialize sets the shared epoch. It is equivalent to calling Init on the
// runtime's ElapsedClock, and is not required if Runtime.Init was called.
func (x *Dispatcher) Initialize() error {
	return x.clock.Init()
}

// Run invokes callback at epoch + offset + k*period, for k = 0, 1, 2, ...
//
// It never returns unless ctx is done, in which case it returns ctx.Err(),
// without interrupting a running callback. Every invocation that starts after
// its scheduled instant counts as an overrun, including the first, if Run is
// called after epoch + offset has passed. A non-positive period, a negative
// offset, or an uninitialized epoch, are fatal errors.
//
// A panic will occur if callback is nil.
func (x *Dispatcher) Run(ctx context.Context, offset, period time.Duration, callback func()) error {
	if callback == nil {
		panic(`taskrt: nil cyclic callback`)
	}
	if period <= 0 || offset < 0 {
		return x.rt.fatal(`cyclic dispatch`, fmt.Errorf(`%w: offset %v, period %v`, ErrInvalidPeriod, offset, period))
	}
	epoch, err := x.clock.Epoch()
	if err != nil {
		return x.rt.fatal(`cyclic dispatch`, err)
	}

	wakeup := epoch.Add(offset)
	for k := uint64(0); ; k++ {
		if late := x.clock.Now().Sub(wakeup); late > 0 {
			x.rt.metrics.dispatcherOverruns.Inc()
			x.rt.logger.Debug().
				Dur(`offset`, offset).
				Dur(`period`, period).
				Uint64(`tick`, k).
				Dur(`late`, late).
				Log(`cyclic dispatch overrun`)
		}

		if err := x.clock.SleepUntil(ctx, wakeup); err != nil {
			return err
		}

		callback()
		x.rt.metrics.dispatcherTicks.Inc()

		wakeup = wakeup.Add(period)
	}
}
