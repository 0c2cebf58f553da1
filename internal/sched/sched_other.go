//go:build !linux

package sched

import "os"

// PriorityRange always fails with ErrUnsupported.
func PriorityRange(Policy) (Range, error) { return Range{}, ErrUnsupported }

// Apply always fails with ErrUnsupported.
func Apply(Policy, int) error { return ErrUnsupported }

// ThreadID returns the process id, as a stand-in for the thread id.
func ThreadID() int { return os.Getpid() }
