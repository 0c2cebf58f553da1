package sched

import (
	"errors"
	"fmt"
)

// Policy identifies a scheduling class, using the Linux numbering.
type Policy int

const (
	// PolicyOther is the default time-sharing class (SCHED_OTHER).
	PolicyOther Policy = 0
	// PolicyFIFO is the fixed-priority, first-in first-out real-time class
	// (SCHED_FIFO).
	PolicyFIFO Policy = 1
	// PolicyRR is the fixed-priority, round-robin real-time class (SCHED_RR).
	PolicyRR Policy = 2
)

// ErrUnsupported is returned on platforms without real-time scheduling
// support.
var ErrUnsupported = errors.New(`sched: real-time scheduling is not supported on this platform`)

// String implements fmt.Stringer.
func (x Policy) String() string {
	switch x {
	case PolicyOther:
		return `SCHED_OTHER`
	case PolicyFIFO:
		return `SCHED_FIFO`
	case PolicyRR:
		return `SCHED_RR`
	default:
		return fmt.Sprintf(`SCHED_%d`, int(x))
	}
}

// Range is the inclusive priority range the OS reports for a policy.
type Range struct {
	Min int
	Max int
}

// Contains reports whether priority is within the range.
func (x Range) Contains(priority int) bool {
	return priority >= x.Min && priority <= x.Max
}
