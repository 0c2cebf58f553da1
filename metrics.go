package taskrt

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = `taskrt`

// runtimeMetrics holds the Prometheus collectors of a Runtime.
//
// Collectors are registered on the configured registerer. If an identical
// collector is already registered (e.g. several runtimes sharing the default
// registerer), the existing collector is reused.
type runtimeMetrics struct {
	queueDropped       *prometheus.CounterVec
	queueDepth         *prometheus.GaugeVec
	dispatcherTicks    prometheus.Counter
	dispatcherOverruns prometheus.Counter
	semaphoresCreated  prometheus.Counter
	semaphoreExhausted prometheus.Counter
	threadsStarted     prometheus.Counter
}

func newRuntimeMetrics(reg prometheus.Registerer) (*runtimeMetrics, error) {
	var (
		m   runtimeMetrics
		err error
	)
	if m.queueDropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `queue`,
		Name:      `dropped_total`,
		Help:      `Messages dropped because the queue was full.`,
	}, []string{`queue`})); err != nil {
		return nil, err
	}
	if m.queueDepth, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: `queue`,
		Name:      `depth`,
		Help:      `Messages currently buffered, summed across queues of the same name.`,
	}, []string{`queue`})); err != nil {
		return nil, err
	}
	if m.dispatcherTicks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `dispatcher`,
		Name:      `ticks_total`,
		Help:      `Cyclic callback invocations.`,
	})); err != nil {
		return nil, err
	}
	if m.dispatcherOverruns, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `dispatcher`,
		Name:      `overruns_total`,
		Help:      `Cyclic invocations that started after their scheduled instant had passed.`,
	})); err != nil {
		return nil, err
	}
	if m.semaphoresCreated, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `semaphore`,
		Name:      `created_total`,
		Help:      `Semaphores allocated from the pool.`,
	})); err != nil {
		return nil, err
	}
	if m.semaphoreExhausted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `semaphore`,
		Name:      `exhausted_total`,
		Help:      `Semaphore allocations refused because the pool was full.`,
	})); err != nil {
		return nil, err
	}
	if m.threadsStarted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: `thread`,
		Name:      `started_total`,
		Help:      `Real-time threads started.`,
	})); err != nil {
		return nil, err
	}
	return &m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}
