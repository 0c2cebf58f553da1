package taskrt

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrNotInitialized is returned when the runtime clock is used before
	// Runtime.Init (or ElapsedClock.Init) has been called.
	ErrNotInitialized = errors.New("taskrt: runtime is not initialized")

	// ErrAlreadyInitialized is returned by a second call to Runtime.Init or
	// ElapsedClock.Init.
	ErrAlreadyInitialized = errors.New("taskrt: runtime is already initialized")

	// ErrPayloadTooLarge is returned when a request length would exceed the
	// capacity of its buffer.
	ErrPayloadTooLarge = errors.New("taskrt: payload exceeds buffer capacity")

	// ErrInvalidPriority is returned when a thread priority is outside the
	// range the OS reports for the real-time policy.
	ErrInvalidPriority = errors.New("taskrt: invalid thread priority")

	// ErrInvalidStackSize is returned when a thread stack size is below
	// MinStackSize.
	ErrInvalidStackSize = errors.New("taskrt: invalid thread stack size")

	// ErrThreadStarted is returned when Start is called on a thread that was
	// already started.
	ErrThreadStarted = errors.New("taskrt: thread already started")

	// ErrBarrierArmed is returned when a start barrier is initialized twice.
	ErrBarrierArmed = errors.New("taskrt: start barrier already armed")

	// ErrBarrierNotArmed is returned when a start barrier is waited on before
	// it was initialized.
	ErrBarrierNotArmed = errors.New("taskrt: start barrier is not armed")

	// ErrInvalidParticipants is returned when a start barrier is armed with
	// a non-positive participant count.
	ErrInvalidParticipants = errors.New("taskrt: invalid start barrier participant count")

	// ErrInvalidPeriod is returned when a cyclic dispatch is requested with a
	// non-positive period or a negative offset.
	ErrInvalidPeriod = errors.New("taskrt: invalid dispatch period or offset")

	// ErrPoolExhausted is returned when the semaphore pool is at capacity.
	ErrPoolExhausted = errors.New("taskrt: semaphore pool exhausted")

	// ErrUnknownSemaphore is returned for an id that was not issued by the
	// semaphore pool.
	ErrUnknownSemaphore = errors.New("taskrt: unknown semaphore")

	// ErrSemaphoreNotHeld is returned when releasing a semaphore that is not
	// currently obtained.
	ErrSemaphoreNotHeld = errors.New("taskrt: semaphore is not held")

	// ErrInvalidOption is returned by New for invalid configuration.
	ErrInvalidOption = errors.New("taskrt: invalid option")
)

// FatalError reports a boot-time configuration failure, i.e. one that cannot
// succeed if retried, such as a real-time thread that cannot be given its
// requested priority.
//
// Every FatalError is passed to the runtime's FatalHandler, which terminates
// the process by default. See also WithFatalHandler.
type FatalError struct {
	// Op names the operation that failed, e.g. "thread start".
	Op string
	// Err is the underlying cause, typically one of the sentinel errors of
	// this package, possibly wrapping an OS error.
	Err error
}

// FatalHandler is called with every fatal error. Implementations that return
// (rather than terminating the process) cause the failing operation to report
// the error to its caller, where the API allows it.
type FatalHandler func(err *FatalError)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("taskrt: fatal: %s", e.Op)
	}
	return fmt.Sprintf("taskrt: fatal: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is, or wraps, a *FatalError.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}
