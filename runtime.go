package taskrt

import (
	"context"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime is the context shared by every task of an application: its clock,
// semaphore table, broker lock, start barrier and cyclic dispatcher, plus the
// ambient logger, metrics and fatal error handling.
//
// A process normally has exactly one Runtime, created at startup, and passed
// to every component that needs it.
type Runtime struct {
	_ [0]func() // prevent copying

	opts         *runtimeOptions
	logger       *logiface.Logger[logiface.Event]
	fatalHandler FatalHandler
	metrics      *runtimeMetrics
	lossLimiter  *catrate.Limiter
	clock        *ElapsedClock
	semaphores   *SemaphorePool
	barrier      *StartBarrier
	dispatcher   *Dispatcher
	gatherer     prometheus.Gatherer
	broker       CriticalSection
}

// New creates a Runtime. Init must be called before any task starts.
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	metrics, err := newRuntimeMetrics(cfg.registerer)
	if err != nil {
		return nil, err
	}

	lossLimiter, err := newLossLimiter(cfg.lossReportRates)
	if err != nil {
		return nil, err
	}

	x := &Runtime{
		opts:         cfg,
		logger:       cfg.logger,
		fatalHandler: cfg.fatalHandler,
		metrics:      metrics,
		lossLimiter:  lossLimiter,
		clock:        newElapsedClock(cfg.clock),
	}
	if x.fatalHandler == nil {
		x.fatalHandler = exitFatalHandler
	}
	if g, ok := cfg.registerer.(prometheus.Gatherer); ok {
		x.gatherer = g
	}
	x.semaphores = newSemaphorePool(x, cfg.semaphoreCapacity)
	x.barrier = newStartBarrier(x)
	x.dispatcher = &Dispatcher{rt: x, clock: x.clock}

	return x, nil
}

// Init sets the clock epoch. It must be called exactly once, before any task
// starts. Subsequent calls return ErrAlreadyInitialized.
func (x *Runtime) Init() error {
	if err := x.clock.Init(); err != nil {
		return err
	}
	x.logger.Info().
		Int(`semaphore_capacity`, x.semaphores.Cap()).
		Log(`runtime initialized`)
	return nil
}

// ElapsedTimeNs returns the nanoseconds elapsed since Init, or 0 prior to
// Init.
func (x *Runtime) ElapsedTimeNs() uint64 {
	return x.clock.ElapsedNs()
}

// SleepNs suspends the calling goroutine for at least ns nanoseconds. It
// always returns true, and exists for symmetry with the other operations.
func (x *Runtime) SleepNs(ns uint64) bool {
	x.clock.Sleep(nsDuration(ns))
	return true
}

// SemaphoreCreate allocates a semaphore, see SemaphorePool.Create.
func (x *Runtime) SemaphoreCreate() (SemaphoreID, error) {
	return x.semaphores.Create()
}

// SemaphoreObtain blocks until the semaphore is held, returning false for an
// unknown id.
func (x *Runtime) SemaphoreObtain(id SemaphoreID) bool {
	return x.semaphores.Obtain(id) == nil
}

// SemaphoreRelease releases the semaphore, returning false for an unknown id,
// or a semaphore that was not held.
func (x *Runtime) SemaphoreRelease(id SemaphoreID) bool {
	return x.semaphores.Release(id) == nil
}

// BrokerAcquireLock enters the runtime-wide broker critical section.
func (x *Runtime) BrokerAcquireLock() { x.broker.Acquire() }

// BrokerReleaseLock leaves the runtime-wide broker critical section.
func (x *Runtime) BrokerReleaseLock() { x.broker.Release() }

// Broker returns the runtime-wide broker critical section.
func (x *Runtime) Broker() *CriticalSection { return &x.broker }

// RunCyclic is shorthand for Dispatcher().Run.
func (x *Runtime) RunCyclic(ctx context.Context, offset, period time.Duration, callback func()) error {
	return x.dispatcher.Run(ctx, offset, period, callback)
}

// Barrier returns the runtime's start barrier.
func (x *Runtime) Barrier() *StartBarrier { return x.barrier }

// Dispatcher returns the runtime's cyclic dispatcher.
func (x *Runtime) Dispatcher() *Dispatcher { return x.dispatcher }

// Clock returns the runtime's elapsed clock.
func (x *Runtime) Clock() *ElapsedClock { return x.clock }

// Semaphores returns the runtime's semaphore pool.
func (x *Runtime) Semaphores() *SemaphorePool { return x.semaphores }

// Logger returns the runtime's logger, which may be nil.
func (x *Runtime) Logger() *logiface.Logger[logiface.Event] { return x.logger }

// Gatherer returns the registry the runtime's metrics were registered on, or
// nil if the registerer given to WithRegisterer does not implement
// prometheus.Gatherer.
func (x *Runtime) Gatherer() prometheus.Gatherer { return x.gatherer }

func nsDuration(ns uint64) time.Duration {
	const maxDuration = time.Duration(1<<63 - 1)
	if ns > uint64(maxDuration) {
		return maxDuration
	}
	return time.Duration(ns)
}
