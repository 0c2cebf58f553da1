package taskrt

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// LossEvent describes a single message dropped by a full queue.
type LossEvent struct {
	// Queue is the name of the queue that dropped the message.
	Queue string
	// Sender identifies the task that produced the dropped message.
	Sender PID
	// Capacity is the queue's maximum element count.
	Capacity int
	// Dropped is the total number of messages the queue has dropped,
	// including this one.
	Dropped uint64
}

// NewDefaultLogger returns a JSON logger writing to stderr, at the given
// minimum level.
func NewDefaultLogger(level logiface.Level) *logiface.Logger[logiface.Event] {
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger returns a JSON logger writing to w, at the given minimum
// level.
func NewWriterLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// newLossLimiter converts the panic catrate uses for invalid rates into an
// error.
func newLossLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter = nil
			err = fmt.Errorf("%w: loss report rates: %v", ErrInvalidOption, r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// reportLoss is called by a queue, without holding its lock, for each
// dropped message.
func (x *Runtime) reportLoss(q *Queue, sender PID, dropped uint64) {
	x.metrics.queueDropped.WithLabelValues(q.name).Inc()

	if h := x.opts.lossHandler; h != nil {
		h(LossEvent{
			Queue:    q.name,
			Sender:   sender,
			Capacity: q.capacity,
			Dropped:  dropped,
		})
	}

	// nil limiter allows everything
	if _, ok := x.lossLimiter.Allow(q); !ok {
		return
	}
	x.logger.Warning().
		Str(`queue`, q.name).
		Int(`capacity`, q.capacity).
		Int64(`sender`, int64(sender)).
		Uint64(`dropped`, dropped).
		Log(`message loss - queue is full`)
}

// fatal wraps err, logs it, and hands it to the fatal handler. The returned
// error is only observed if the handler returns.
func (x *Runtime) fatal(op string, err error) *FatalError {
	fe := &FatalError{Op: op, Err: err}
	x.logger.Emerg().
		Str(`op`, op).
		Err(err).
		Log(`fatal runtime configuration error`)
	x.fatalHandler(fe)
	return fe
}

func exitFatalHandler(*FatalError) {
	os.Exit(1)
}
