package taskrt

import (
	"sync"
)

// CriticalSection is a non-reentrant mutual exclusion lock. The zero value is
// an unlocked CriticalSection.
//
// A CriticalSection must not be copied after first use.
type CriticalSection struct {
	_  [0]func() // prevent comparison
	mu sync.Mutex
}

var _ sync.Locker = (*CriticalSection)(nil)

// Lock blocks until the critical section is free, then enters it.
func (x *CriticalSection) Lock() { x.mu.Lock() }

// Unlock leaves the critical section. As with sync.Mutex, it is a run-time
// error if the critical section was not entered.
func (x *CriticalSection) Unlock() { x.mu.Unlock() }

// Acquire is an alias of Lock.
func (x *CriticalSection) Acquire() { x.mu.Lock() }

// Release is an alias of Unlock.
func (x *CriticalSection) Release() { x.mu.Unlock() }

// TryAcquire enters the critical section if it is free, without blocking.
func (x *CriticalSection) TryAcquire() bool { return x.mu.TryLock() }
