package taskrt

import (
	"fmt"
	"sync"
)

// StartBarrier is a one-shot rendezvous for a fixed number of task threads,
// running an initializer exactly once before any of them proceeds.
//
// Each Runtime owns a single StartBarrier, see Runtime.Barrier.
type StartBarrier struct {
	_ [0]func() // prevent copying

	rt       *Runtime
	callback func()
	mu       sync.Mutex
	cond     sync.Cond
	count    int
	arrived  int
	armed    bool
	running  bool
	released bool
}

func newStartBarrier(rt *Runtime) *StartBarrier {
	b := &StartBarrier{rt: rt}
	b.cond.L = &b.mu
	return b
}

// Initialize arms the barrier for count participants. The callback, which
// may be nil, runs once all participants have called Wait.
//
// It must be called once, before any participant calls Wait. A second call,
// or a non-positive count, is a fatal error.
func (x *StartBarrier) Initialize(count int, callback func()) error {
	if count <= 0 {
		return x.rt.fatal(`start barrier initialize`, fmt.Errorf(`%w: %d`, ErrInvalidParticipants, count))
	}

	x.mu.Lock()
	if x.armed {
		x.mu.Unlock()
		return x.rt.fatal(`start barrier initialize`, ErrBarrierArmed)
	}
	x.count = count
	x.callback = callback
	x.armed = true
	x.mu.Unlock()

	return nil
}

// Wait blocks until all participants have called Wait, and the callback has
// completed. The last participant to arrive runs the callback, on its own
// goroutine, while the others remain blocked.
//
// Once released, the barrier stays open, and Wait returns immediately.
// Calling Wait before Initialize is a fatal error, and (if the fatal handler
// returns) Wait returns without blocking.
func (x *StartBarrier) Wait() {
	x.mu.Lock()

	if !x.armed {
		x.mu.Unlock()
		x.rt.fatal(`start barrier wait`, ErrBarrierNotArmed)
		return
	}

	if x.released {
		x.mu.Unlock()
		return
	}

	x.arrived++
	if x.arrived < x.count || x.running {
		for !x.released {
			x.cond.Wait()
		}
		x.mu.Unlock()
		return
	}

	x.running = true
	callback := x.callback
	x.mu.Unlock()

	defer x.release()
	x.runCallback(callback)
}

// Released reports whether the barrier has opened.
func (x *StartBarrier) Released() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.released
}

func (x *StartBarrier) runCallback(callback func()) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			x.rt.fatal(`start barrier callback`, fmt.Errorf(`panic: %v`, r))
		}
	}()
	callback()
}

func (x *StartBarrier) release() {
	x.mu.Lock()
	x.released = true
	x.running = false
	x.mu.Unlock()
	x.cond.Broadcast()
}
