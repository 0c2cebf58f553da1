package taskrt

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/joeycumines/go-taskrt/internal/sched"
)

// MinStackSize is the smallest stack size accepted for a real-time thread,
// matching the usual PTHREAD_STACK_MIN.
const MinStackSize = 16 << 10

// Scheduler binds OS threads to a fixed-priority real-time policy.
type Scheduler interface {
	// PriorityRange returns the inclusive legal priority range of the
	// policy.
	PriorityRange() (min, max int, err error)
	// Apply sets the policy and priority on the calling OS thread, which
	// the caller has locked.
	Apply(priority int) error
}

// SystemScheduler is the default Scheduler, using SCHED_FIFO. It requires
// Linux, and the privilege to use real-time scheduling (CAP_SYS_NICE or a
// suitable RLIMIT_RTPRIO).
type SystemScheduler struct{}

var _ Scheduler = SystemScheduler{}

// PriorityRange implements Scheduler.
func (SystemScheduler) PriorityRange() (int, int, error) {
	r, err := sched.PriorityRange(sched.PolicyFIFO)
	return r.Min, r.Max, err
}

// Apply implements Scheduler.
func (SystemScheduler) Apply(priority int) error {
	return sched.Apply(sched.PolicyFIFO, priority)
}

// Thread runs a task's entry point on a dedicated OS thread, bound to a
// fixed-priority real-time scheduling policy.
//
// The goroutine running the entry point stays locked to its OS thread for its
// whole life, and the thread is discarded (rather than returned to the Go
// scheduler) once the entry point returns.
//
// Instances must be initialized using Runtime.NewThread.
type Thread struct {
	_ [0]func() // prevent copying

	rt        *Runtime
	done      chan struct{}
	tid       atomic.Int64
	priority  int
	stackSize int
	started   atomic.Bool
}

// NewThread returns a thread that is not yet running. Nothing is validated
// until Start.
//
// Goroutine stacks grow on demand, so stackSize is a validated requirement of
// the task, rather than a reservation.
func (x *Runtime) NewThread(priority, stackSize int) *Thread {
	return &Thread{
		rt:        x,
		done:      make(chan struct{}),
		priority:  priority,
		stackSize: stackSize,
	}
}

// Priority returns the requested scheduling priority.
func (x *Thread) Priority() int { return x.priority }

// StackSize returns the requested stack size, in bytes.
func (x *Thread) StackSize() int { return x.stackSize }

// ThreadID returns the OS thread id, or 0 if the thread has not started.
func (x *Thread) ThreadID() int { return int(x.tid.Load()) }

// Start spawns the thread, running entry. It returns once the thread is
// running with its real-time policy applied.
//
// Every failure is fatal, see FatalError. A panic will occur if entry is nil.
func (x *Thread) Start(entry func()) error {
	if entry == nil {
		panic(`taskrt: nil thread entry`)
	}
	return x.start(entry)
}

// StartWithParam is equivalent to Start, calling entry with param.
func (x *Thread) StartWithParam(entry func(param any), param any) error {
	if entry == nil {
		panic(`taskrt: nil thread entry`)
	}
	return x.start(func() { entry(param) })
}

// Join blocks until the thread's entry point returns, or the thread failed to
// start. Task loops normally never return, so this is mainly useful for
// orderly shutdown and tests.
func (x *Thread) Join() {
	<-x.done
}

func (x *Thread) start(entry func()) error {
	if !x.started.CompareAndSwap(false, true) {
		return x.rt.fatal(`thread start`, ErrThreadStarted)
	}

	if x.stackSize < MinStackSize {
		close(x.done)
		return x.rt.fatal(`thread stack size`, fmt.Errorf(`%w: minimum %d, requested %d`, ErrInvalidStackSize, MinStackSize, x.stackSize))
	}

	lo, hi, err := x.rt.opts.scheduler.PriorityRange()
	if err != nil {
		close(x.done)
		return x.rt.fatal(`thread scheduling policy`, err)
	}
	if x.priority < lo || x.priority > hi {
		close(x.done)
		return x.rt.fatal(`thread priority`, fmt.Errorf(`%w: min:%d max:%d requested:%d`, ErrInvalidPriority, lo, hi, x.priority))
	}

	ready := make(chan error, 1)
	go x.run(entry, ready)
	if err := <-ready; err != nil {
		return x.rt.fatal(`thread scheduling attributes`, err)
	}

	x.rt.metrics.threadsStarted.Inc()
	x.rt.logger.Info().
		Int(`tid`, x.ThreadID()).
		Int(`priority`, x.priority).
		Int(`stack_size`, x.stackSize).
		Log(`real-time thread started`)

	return nil
}

func (x *Thread) run(entry func(), ready chan<- error) {
	defer close(x.done)

	// never unlocked: exiting while locked terminates the OS thread, so a
	// real-time thread is never handed back to the Go scheduler
	runtime.LockOSThread()

	x.tid.Store(int64(sched.ThreadID()))

	if err := x.rt.opts.scheduler.Apply(x.priority); err != nil {
		ready <- err
		return
	}
	ready <- nil

	entry()
}
