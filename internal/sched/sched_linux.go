//go:build linux

package sched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PriorityRange returns the legal priority range for policy, as reported by
// sched_get_priority_min and sched_get_priority_max.
func PriorityRange(policy Policy) (Range, error) {
	lo, _, errno := unix.RawSyscall(unix.SYS_SCHED_GET_PRIORITY_MIN, uintptr(policy), 0, 0)
	if errno != 0 {
		return Range{}, fmt.Errorf(`sched: get priority min for %s: %w`, policy, errno)
	}
	hi, _, errno := unix.RawSyscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(policy), 0, 0)
	if errno != 0 {
		return Range{}, fmt.Errorf(`sched: get priority max for %s: %w`, policy, errno)
	}
	return Range{Min: int(lo), Max: int(hi)}, nil
}

// Apply sets policy and priority on the calling OS thread.
//
// The caller must have locked its goroutine to the OS thread
// (runtime.LockOSThread), otherwise the attribute lands on whichever thread
// happens to be running the goroutine.
func Apply(policy Policy, priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   uint32(policy),
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf(`sched: set %s priority %d on thread %d: %w`, policy, priority, unix.Gettid(), err)
	}
	return nil
}

// ThreadID returns the OS thread id of the caller.
func ThreadID() int { return unix.Gettid() }
