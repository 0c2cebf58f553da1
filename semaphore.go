package taskrt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// SemaphoreID identifies a semaphore issued by a SemaphorePool. The zero
// value is never issued.
type SemaphoreID int32

// SemaphorePool is a fixed-size table of binary semaphores, allocated during
// startup, and then obtained and released by id.
//
// Unlike a mutex, a semaphore may be released by a different goroutine than
// the one that obtained it.
type SemaphorePool struct {
	rt    *Runtime
	mu    sync.RWMutex
	table []*binarySemaphore
	limit int
}

type binarySemaphore struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

func newSemaphorePool(rt *Runtime, capacity int) *SemaphorePool {
	return &SemaphorePool{
		rt:    rt,
		table: make([]*binarySemaphore, 0, capacity),
		limit: capacity,
	}
}

// Cap returns the fixed capacity of the pool.
func (x *SemaphorePool) Cap() int { return x.limit }

// Len returns the number of semaphores created.
func (x *SemaphorePool) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.table)
}

// Create allocates a new, released, semaphore. It is intended to be called
// during startup, from a single goroutine.
//
// If the pool is at capacity, ErrPoolExhausted is returned (and logged), and
// previously issued ids are unaffected.
func (x *SemaphorePool) Create() (SemaphoreID, error) {
	x.mu.Lock()
	if len(x.table) >= x.limit {
		x.mu.Unlock()
		x.rt.metrics.semaphoreExhausted.Inc()
		x.rt.logger.Warning().
			Int(`capacity`, x.limit).
			Log(`semaphore pool exhausted`)
		return 0, fmt.Errorf(`%w: capacity %d`, ErrPoolExhausted, x.limit)
	}
	x.table = append(x.table, &binarySemaphore{sem: semaphore.NewWeighted(1)})
	id := SemaphoreID(len(x.table))
	x.mu.Unlock()

	x.rt.metrics.semaphoresCreated.Inc()
	return id, nil
}

// Obtain blocks until the semaphore is free, then holds it.
func (x *SemaphorePool) Obtain(id SemaphoreID) error {
	return x.ObtainContext(context.Background(), id)
}

// ObtainContext is equivalent to Obtain, but gives up if ctx is done first,
// returning ctx.Err().
func (x *SemaphorePool) ObtainContext(ctx context.Context, id SemaphoreID) error {
	s, err := x.lookup(id)
	if err != nil {
		return err
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.held.Store(true)
	return nil
}

// TryObtain holds the semaphore if it is free, without blocking.
func (x *SemaphorePool) TryObtain(id SemaphoreID) (bool, error) {
	s, err := x.lookup(id)
	if err != nil {
		return false, err
	}
	if !s.sem.TryAcquire(1) {
		return false, nil
	}
	s.held.Store(true)
	return true, nil
}

// Release frees the semaphore, waking at most one waiter. Releasing a
// semaphore that is not held returns ErrSemaphoreNotHeld.
func (x *SemaphorePool) Release(id SemaphoreID) error {
	s, err := x.lookup(id)
	if err != nil {
		return err
	}
	if !s.held.CompareAndSwap(true, false) {
		return fmt.Errorf(`%w: %d`, ErrSemaphoreNotHeld, id)
	}
	s.sem.Release(1)
	return nil
}

func (x *SemaphorePool) lookup(id SemaphoreID) (*binarySemaphore, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if id <= 0 || int(id) > len(x.table) {
		return nil, fmt.Errorf(`%w: %d`, ErrUnknownSemaphore, id)
	}
	return x.table[id-1], nil
}
