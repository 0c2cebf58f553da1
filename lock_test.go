package taskrt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCriticalSection(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	var (
		cs      CriticalSection
		wg      sync.WaitGroup
		counter int
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				if i%2 == 0 {
					cs.Lock()
					counter++
					cs.Unlock()
				} else {
					cs.Acquire()
					counter++
					cs.Release()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8*500, counter)
}

func TestCriticalSection_TryAcquire(t *testing.T) {
	var cs CriticalSection
	assert.True(t, cs.TryAcquire())
	assert.False(t, cs.TryAcquire())
	cs.Release()
	assert.True(t, cs.TryAcquire())
	cs.Unlock()
}

func TestRuntime_broker(t *testing.T) {
	h := newTestRuntime(t)
	h.rt.BrokerAcquireLock()
	assert.False(t, h.rt.Broker().TryAcquire())
	h.rt.BrokerReleaseLock()
	assert.True(t, h.rt.Broker().TryAcquire())
	h.rt.Broker().Release()
}
