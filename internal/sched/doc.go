// Package sched wraps the host OS real-time scheduling calls used to bind a
// locked OS thread to a fixed-priority policy.
//
// Only Linux is supported. On other platforms every call reports
// [ErrUnsupported].
package sched
