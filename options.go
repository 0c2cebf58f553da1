package taskrt

import (
	"fmt"
	"maps"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultSemaphoreCapacity is the semaphore pool size used unless
	// WithSemaphoreCapacity is given.
	DefaultSemaphoreCapacity = 8
)

// DefaultLossReportRates limits message loss warnings, per queue.
var DefaultLossReportRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// runtimeOptions holds configuration options for Runtime creation.
type runtimeOptions struct {
	logger            *logiface.Logger[logiface.Event]
	fatalHandler      FatalHandler
	clock             clock.Clock
	scheduler         Scheduler
	registerer        prometheus.Registerer
	lossHandler       func(LossEvent)
	lossReportRates   map[time.Duration]int
	semaphoreCapacity int
}

// Option configures a Runtime instance.
type Option interface {
	applyRuntime(*runtimeOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyRuntimeFunc func(*runtimeOptions) error
}

func (o *optionImpl) applyRuntime(opts *runtimeOptions) error {
	return o.applyRuntimeFunc(opts)
}

// WithLogger sets the structured logger. A nil logger disables logging.
// Defaults to a JSON logger writing to stderr, see NewDefaultLogger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithFatalHandler replaces the default fatal handler, which logs the error
// then exits the process with status 1.
//
// Tests typically use a handler that records the error and returns.
func WithFatalHandler(handler FatalHandler) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if handler == nil {
			return fmt.Errorf("%w: nil fatal handler", ErrInvalidOption)
		}
		opts.fatalHandler = handler
		return nil
	}}
}

// WithClock sets the time source used by the elapsed clock and the periodic
// dispatcher. Defaults to the wall clock (clock.New).
func WithClock(c clock.Clock) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if c == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidOption)
		}
		opts.clock = c
		return nil
	}}
}

// WithScheduler sets the OS scheduling backend used by real-time threads.
// Defaults to SystemScheduler.
func WithScheduler(s Scheduler) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if s == nil {
			return fmt.Errorf("%w: nil scheduler", ErrInvalidOption)
		}
		opts.scheduler = s
		return nil
	}}
}

// WithRegisterer sets where the runtime's Prometheus collectors are
// registered. Defaults to a private registry, see Runtime.Gatherer.
func WithRegisterer(r prometheus.Registerer) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if r == nil {
			return fmt.Errorf("%w: nil registerer", ErrInvalidOption)
		}
		opts.registerer = r
		return nil
	}}
}

// WithSemaphoreCapacity sets the fixed size of the semaphore pool.
func WithSemaphoreCapacity(capacity int) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if capacity <= 0 {
			return fmt.Errorf("%w: semaphore capacity must be positive: %d", ErrInvalidOption, capacity)
		}
		opts.semaphoreCapacity = capacity
		return nil
	}}
}

// WithLossHandler registers a callback invoked, synchronously and without any
// rate limiting, each time a queue drops a message. The callback must not
// block, and must not call back into the queue.
func WithLossHandler(handler func(LossEvent)) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.lossHandler = handler
		return nil
	}}
}

// WithLossReportRates sets the per-queue rate limits applied to message loss
// warnings, in the format accepted by catrate.NewLimiter. An empty map
// disables rate limiting. Defaults to DefaultLossReportRates. The map is
// copied.
func WithLossReportRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.lossReportRates = maps.Clone(rates)
		return nil
	}}
}

// resolveOptions applies Option instances to runtimeOptions.
func resolveOptions(opts []Option) (*runtimeOptions, error) {
	cfg := &runtimeOptions{
		logger:            NewDefaultLogger(logiface.LevelInformational),
		lossReportRates:   maps.Clone(DefaultLossReportRates),
		semaphoreCapacity: DefaultSemaphoreCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.scheduler == nil {
		cfg.scheduler = SystemScheduler{}
	}
	if cfg.registerer == nil {
		cfg.registerer = prometheus.NewRegistry()
	}
	return cfg, nil
}
