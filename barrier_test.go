package taskrt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBarrier_Wait(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	const participants = 8
	h := newTestRuntime(t)
	b := h.rt.Barrier()

	var (
		calls        atomic.Int32
		passed       atomic.Int32
		passedEarly  atomic.Bool
		callbackDone atomic.Bool
	)
	require.NoError(t, b.Initialize(participants, func() {
		calls.Add(1)
		if passed.Load() != 0 {
			passedEarly.Store(true)
		}
		time.Sleep(time.Millisecond * 10)
		callbackDone.Store(true)
	}))

	var (
		wg          sync.WaitGroup
		sawCallback atomic.Int32
	)
	for range participants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
			if callbackDone.Load() {
				sawCallback.Add(1)
			}
			passed.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, passedEarly.Load())
	assert.Equal(t, int32(participants), sawCallback.Load())
	assert.True(t, b.Released())
	assert.Empty(t, h.fatals.Errors())

	// open gate
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second * 3):
		t.Fatal(`wait after release blocked`)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestStartBarrier_Wait_blocksUntilAllArrive(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	h := newTestRuntime(t)
	b := h.rt.Barrier()
	require.NoError(t, b.Initialize(2, nil))

	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()

	waitFor(t, time.Second*3, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.arrived == 1
	})
	select {
	case <-done:
		t.Fatal(`released with one participant outstanding`)
	case <-time.After(time.Millisecond * 20):
	}
	assert.False(t, b.Released())

	b.Wait()
	<-done
	assert.True(t, b.Released())
}

func TestStartBarrier_Wait_singleParticipant(t *testing.T) {
	h := newTestRuntime(t)
	b := h.rt.Barrier()
	var called bool
	require.NoError(t, b.Initialize(1, func() { called = true }))
	b.Wait()
	assert.True(t, called)
	assert.True(t, b.Released())
}

func TestStartBarrier_Wait_notArmed(t *testing.T) {
	h := newTestRuntime(t)
	h.rt.Barrier().Wait()

	errs := h.fatals.Errors()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrBarrierNotArmed))
	assert.Equal(t, `start barrier wait`, errs[0].Op)
}

func TestStartBarrier_Initialize_fatal(t *testing.T) {
	for _, tc := range [...]struct {
		name    string
		arm     func(b *StartBarrier) error
		wantErr error
	}{
		{
			name:    `zero participants`,
			arm:     func(b *StartBarrier) error { return b.Initialize(0, nil) },
			wantErr: ErrInvalidParticipants,
		},
		{
			name:    `negative participants`,
			arm:     func(b *StartBarrier) error { return b.Initialize(-3, nil) },
			wantErr: ErrInvalidParticipants,
		},
		{
			name: `armed twice`,
			arm: func(b *StartBarrier) error {
				if err := b.Initialize(1, nil); err != nil {
					return err
				}
				return b.Initialize(1, nil)
			},
			wantErr: ErrBarrierArmed,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRuntime(t)
			err := tc.arm(h.rt.Barrier())
			assert.True(t, IsFatal(err), err)
			assert.True(t, errors.Is(err, tc.wantErr), err)
			require.Len(t, h.fatals.Errors(), 1)
			assert.Equal(t, `start barrier initialize`, h.fatals.Errors()[0].Op)
		})
	}
}

func TestStartBarrier_Wait_callbackPanics(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	h := newTestRuntime(t)
	b := h.rt.Barrier()
	require.NoError(t, b.Initialize(3, func() { panic(`boom`) }))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
		}()
	}
	wg.Wait()

	assert.True(t, b.Released())
	errs := h.fatals.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, `start barrier callback`, errs[0].Op)
	assert.Contains(t, errs[0].Error(), `boom`)
}
