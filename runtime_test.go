package taskrt

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_defaults(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	rt, err := New()
	require.NoError(t, err)
	assert.NotNil(t, rt.Logger())
	assert.NotNil(t, rt.fatalHandler)
	assert.NotNil(t, rt.lossLimiter)
	assert.NotNil(t, rt.Gatherer())
	assert.IsType(t, SystemScheduler{}, rt.opts.scheduler)
	assert.Equal(t, DefaultSemaphoreCapacity, rt.Semaphores().Cap())
	assert.NotNil(t, rt.Barrier())
	assert.NotNil(t, rt.Dispatcher())
	assert.False(t, rt.Clock().Initialized())
}

func TestNew_invalidOptions(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		opt  Option
	}{
		{`nil fatal handler`, WithFatalHandler(nil)},
		{`nil clock`, WithClock(nil)},
		{`nil scheduler`, WithScheduler(nil)},
		{`nil registerer`, WithRegisterer(nil)},
		{`zero semaphore capacity`, WithSemaphoreCapacity(0)},
		{`irrelevant loss report rates`, WithLossReportRates(map[time.Duration]int{time.Second: 10, time.Minute: 5})},
		{`non-positive loss report rate`, WithLossReportRates(map[time.Duration]int{time.Second: 0})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rt, err := New(tc.opt)
			assert.Nil(t, rt)
			assert.True(t, errors.Is(err, ErrInvalidOption), err)
		})
	}
}

func TestNew_lossReportRatesCopied(t *testing.T) {
	rates := map[time.Duration]int{time.Second: 3}
	a, err := resolveOptions([]Option{WithLossReportRates(rates)})
	require.NoError(t, err)
	rates[time.Second] = 0
	assert.Equal(t, map[time.Duration]int{time.Second: 3}, a.lossReportRates)

	b, err := resolveOptions(nil)
	require.NoError(t, err)
	b.lossReportRates[time.Hour] = 1
	assert.NotContains(t, DefaultLossReportRates, time.Hour)
	assert.Equal(t, map[time.Duration]int{time.Second: 10, time.Minute: 100}, DefaultLossReportRates)
}

func TestNew_nilOption(t *testing.T) {
	rt, err := New(nil, WithLogger(nil), WithLossReportRates(nil))
	require.NoError(t, err)
	assert.Nil(t, rt.Logger())
	assert.Nil(t, rt.lossLimiter)

	// a nil logger discards everything
	require.NoError(t, rt.Init())
}

func TestNew_sharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestRuntime(t, WithRegisterer(reg))
	b := newTestRuntime(t, WithRegisterer(reg))

	assert.Same(t, a.rt.metrics.threadsStarted, b.rt.metrics.threadsStarted)
	assert.Same(t, reg, a.rt.Gatherer())

	qa := a.rt.NewQueue(`shared`, 1, 0)
	qb := b.rt.NewQueue(`shared`, 1, 0)
	require.True(t, qa.PutBytes(1, nil))
	require.False(t, qa.PutBytes(1, nil))
	require.True(t, qb.PutBytes(1, nil))
	require.False(t, qb.PutBytes(1, nil))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.rt.metrics.queueDropped.WithLabelValues(`shared`)))

	n, err := testutil.GatherAndCount(reg, `taskrt_queue_dropped_total`)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRuntime_Init(t *testing.T) {
	mock := clock.NewMock()
	h := newTestRuntime(t, WithClock(mock))

	assert.Equal(t, uint64(0), h.rt.ElapsedTimeNs())
	require.NoError(t, h.rt.Init())
	assert.Equal(t, 1, h.logs.Count(`runtime initialized`))

	mock.Add(time.Microsecond * 250)
	assert.Equal(t, uint64(250_000), h.rt.ElapsedTimeNs())

	assert.Equal(t, ErrAlreadyInitialized, h.rt.Init())
	assert.Equal(t, ErrAlreadyInitialized, h.rt.Dispatcher().Initialize())
	assert.Equal(t, 1, h.logs.Count(`runtime initialized`))
}

func TestRuntime_SleepNs(t *testing.T) {
	h := newTestRuntime(t)
	require.NoError(t, h.rt.Init())
	before := h.rt.ElapsedTimeNs()
	assert.True(t, h.rt.SleepNs(uint64(time.Millisecond*2)))
	assert.GreaterOrEqual(t, h.rt.ElapsedTimeNs()-before, uint64(time.Millisecond*2))
	assert.True(t, h.rt.SleepNs(0))
}

func Test_nsDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), nsDuration(0))
	assert.Equal(t, time.Second, nsDuration(uint64(time.Second)))
	assert.Equal(t, time.Duration(1<<63-1), nsDuration(1<<63))
	assert.Equal(t, time.Duration(1<<63-1), nsDuration(^uint64(0)))
}

func TestFatalError(t *testing.T) {
	err := &FatalError{Op: `thread start`, Err: ErrThreadStarted}
	assert.Equal(t, `taskrt: fatal: thread start: taskrt: thread already started`, err.Error())
	assert.True(t, errors.Is(err, ErrThreadStarted))
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(errors.Join(errors.New(`other`), err)))
	assert.False(t, IsFatal(ErrThreadStarted))
	assert.Equal(t, `taskrt: fatal: boot`, (&FatalError{Op: `boot`}).Error())
}
