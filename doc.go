// Package taskrt is the runtime substrate beneath generated real-time task
// code: bounded message queues between tasks, fixed-priority task threads, a
// one-shot start barrier, a phase-locked periodic dispatcher, binary
// semaphores, critical sections, and a shared monotonic clock.
//
// # Architecture
//
// A process creates one [Runtime] with [New], then calls [Runtime.Init] to
// set the clock epoch. Each sporadic interface gets a [Queue] from
// [Runtime.NewQueue], serviced by a task running on a [Thread] from
// [Runtime.NewThread]. Cyclic interfaces are driven by [Runtime.RunCyclic].
// Every task thread calls [StartBarrier.Wait] on [Runtime.Barrier] before
// doing any work, so no task observes another that has not started.
//
// # Failure Model
//
// Boot-time configuration errors, such as a thread priority outside the range
// of the real-time policy, or a message larger than its queue's message
// size, are fatal. They are logged at emergency level, then passed to the
// [FatalHandler], which exits the process by default. See [FatalError] and
// [WithFatalHandler].
//
// Runtime conditions are not fatal. A full queue drops the incoming message,
// reporting the loss (rate limited) and counting it, and the producer carries
// on.
//
// # Platform Support
//
// Real-time scheduling ([SystemScheduler]) requires Linux, and either
// CAP_SYS_NICE or a suitable RLIMIT_RTPRIO. Everything else is portable, and
// [WithScheduler] may be used to substitute the scheduling backend.
package taskrt
