package taskrt

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Queue is a bounded FIFO of fixed-size messages, connecting producers to
// the single task that services a sporadic interface.
//
// Producers never block: Put drops the message if the queue is full,
// reporting the loss (see WithLossHandler and WithLossReportRates). The
// consumer blocks in Get until a message is available.
//
// Instances must be initialized using Runtime.NewQueue.
type Queue struct {
	_ [0]func() // prevent copying

	rt          *Runtime
	depth       prometheus.Gauge
	name        string
	capacity    int
	messageSize int

	mu      sync.Mutex
	cond    sync.Cond
	slots   []Request
	r, w    uint64
	dropped uint64
	waiters int
}

// NewQueue creates a queue holding at most capacity messages, each of at
// most messageSize bytes. The name is used for reporting only. Queues sharing
// a name (including across runtimes sharing a registerer) share their metric
// series, which then report the sum of their depths and drops.
//
// A panic will occur if capacity is not positive, or messageSize is
// negative, as both are fixed when the task set is generated.
func (x *Runtime) NewQueue(name string, capacity, messageSize int) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf(`taskrt: queue %q: capacity must be positive: %d`, name, capacity))
	}
	if messageSize < 0 {
		panic(fmt.Sprintf(`taskrt: queue %q: negative message size: %d`, name, messageSize))
	}
	q := &Queue{
		rt:          x,
		depth:       x.metrics.queueDepth.WithLabelValues(name),
		name:        name,
		capacity:    capacity,
		messageSize: messageSize,
		slots:       make([]Request, capacity),
	}
	q.cond.L = &q.mu
	// one contiguous allocation for every slot
	buf := make([]byte, capacity*messageSize)
	for i := range q.slots {
		q.slots[i].buf = buf[i*messageSize : (i+1)*messageSize : (i+1)*messageSize]
	}
	return q
}

// Name returns the name given to NewQueue.
func (x *Queue) Name() string { return x.name }

// Cap returns the maximum number of buffered messages.
func (x *Queue) Cap() int { return x.capacity }

// MessageSize returns the maximum payload size, in bytes.
func (x *Queue) MessageSize() int { return x.messageSize }

// Put enqueues a copy of the request's payload and sender, returning false if
// the message was dropped because the queue was full.
//
// A payload longer than MessageSize is a fatal configuration error.
func (x *Queue) Put(req *Request) bool {
	return x.put(`queue put`, req.sender, req.Payload())
}

// PutBytes is equivalent to Put, for a payload held in a plain byte slice.
func (x *Queue) PutBytes(sender PID, data []byte) bool {
	return x.put(`queue put bytes`, sender, data)
}

func (x *Queue) put(op string, sender PID, payload []byte) bool {
	if len(payload) > x.messageSize {
		x.rt.fatal(op, fmt.Errorf(`%w: queue %q accepts messages of up to %d bytes, got %d`, ErrPayloadTooLarge, x.name, x.messageSize, len(payload)))
		return false
	}

	x.mu.Lock()
	if x.len() >= x.capacity {
		x.dropped++
		dropped := x.dropped
		x.mu.Unlock()
		x.rt.reportLoss(x, sender, dropped)
		return false
	}
	slot := &x.slots[x.w%uint64(x.capacity)]
	slot.length = copy(slot.buf, payload)
	slot.sender = sender
	x.w++
	x.depth.Inc()
	x.mu.Unlock()

	// only one consumer services a queue, so there is no reason to wake more
	x.cond.Signal()
	return true
}

// Get blocks until the queue is non-empty, then removes the oldest message,
// copying it into out.
//
// The capacity of out must be at least MessageSize, otherwise it is a fatal
// configuration error, and (if the fatal handler returns) Get returns without
// modifying out.
func (x *Queue) Get(out *Request) {
	if out.Capacity() < x.messageSize {
		x.rt.fatal(`queue get`, fmt.Errorf(`%w: queue %q holds messages of up to %d bytes, buffer capacity is %d`, ErrPayloadTooLarge, x.name, x.messageSize, out.Capacity()))
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for x.r == x.w {
		x.waiters++
		x.cond.Wait()
		x.waiters--
	}

	slot := &x.slots[x.r%uint64(x.capacity)]
	out.length = copy(out.buf, slot.buf[:slot.length])
	out.sender = slot.sender
	slot.length = 0
	slot.sender = 0
	x.r++
	x.depth.Dec()
}

// IsEmpty returns a momentary snapshot of whether the queue is empty.
func (x *Queue) IsEmpty() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.r == x.w
}

// Len returns a momentary snapshot of the number of buffered messages.
func (x *Queue) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.len()
}

// Dropped returns the number of messages dropped since the queue was created.
func (x *Queue) Dropped() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dropped
}

func (x *Queue) len() int { return int(x.w - x.r) }
