package taskrt

import (
	"bytes"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
)

// syncBuffer is a bytes.Buffer that is safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

func (x *syncBuffer) Count(substr string) int {
	return strings.Count(x.String(), substr)
}

// fatalRecorder is a FatalHandler that records, rather than exiting.
type fatalRecorder struct {
	mu   sync.Mutex
	errs []*FatalError
}

func (x *fatalRecorder) handle(err *FatalError) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.errs = append(x.errs, err)
}

func (x *fatalRecorder) Errors() []*FatalError {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]*FatalError(nil), x.errs...)
}

type testHarness struct {
	rt     *Runtime
	logs   *syncBuffer
	fatals *fatalRecorder
}

// newTestRuntime builds a runtime that logs (at debug level) to a buffer, and
// records fatal errors instead of exiting. Loss report rate limiting is
// disabled, unless overridden by opts.
func newTestRuntime(t *testing.T, opts ...Option) *testHarness {
	t.Helper()
	h := testHarness{
		logs:   new(syncBuffer),
		fatals: new(fatalRecorder),
	}
	rt, err := New(append([]Option{
		WithLogger(NewWriterLogger(h.logs, logiface.LevelDebug)),
		WithFatalHandler(h.fatals.handle),
		WithLossReportRates(nil),
	}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	h.rt = rt
	return &h
}

func checkNumGoroutines(timeout time.Duration) func(t *testing.T) {
	before := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(timeout)
		for {
			after := runtime.NumGoroutine()
			if after <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf(`too many goroutines: %d -> %d`, before, after)
				return
			}
			time.Sleep(time.Millisecond * 10)
		}
	}
}

// waitFor polls cond until it returns true, failing the test after timeout.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(`timed out waiting for condition`)
		}
		time.Sleep(time.Millisecond)
	}
}
