package taskrt

import (
	"fmt"
)

// PID identifies the task that produced a message.
type PID int32

// Request is a message buffer of fixed capacity, with an explicit payload
// length, and the identity of its sender.
//
// The capacity is fixed when the Request is created, and models the maximum
// encoded size of an interface's parameter. Queues copy requests by value,
// i.e. a Request's buffer is never shared with a queue.
type Request struct {
	buf    []byte
	length int
	sender PID
}

// NewRequest returns an empty request with the given capacity.
// A panic will occur if capacity is negative.
func NewRequest(capacity int) Request {
	if capacity < 0 {
		panic(fmt.Sprintf(`taskrt: negative request capacity: %d`, capacity))
	}
	return Request{buf: make([]byte, capacity)}
}

// Capacity returns the fixed size of the request buffer.
func (x *Request) Capacity() int { return len(x.buf) }

// Len returns the payload length.
func (x *Request) Len() int { return x.length }

// SetLength sets the payload length. A length beyond Capacity is a
// configuration error, and results in ErrPayloadTooLarge, leaving the length
// unchanged.
func (x *Request) SetLength(length int) error {
	if length < 0 || length > len(x.buf) {
		return fmt.Errorf(`%w: length %d, capacity %d`, ErrPayloadTooLarge, length, len(x.buf))
	}
	x.length = length
	return nil
}

// Data returns the whole buffer, of length Capacity, for in-place encoding.
// Use SetLength afterwards.
func (x *Request) Data() []byte { return x.buf }

// Payload returns the first Len bytes of the buffer.
func (x *Request) Payload() []byte { return x.buf[:x.length] }

// SetPayload copies b into the buffer, and sets the length accordingly.
// See also SetLength.
func (x *Request) SetPayload(b []byte) error {
	if len(b) > len(x.buf) {
		return fmt.Errorf(`%w: length %d, capacity %d`, ErrPayloadTooLarge, len(b), len(x.buf))
	}
	x.length = copy(x.buf, b)
	return nil
}

// Sender returns the identity of the task that produced the request.
func (x *Request) Sender() PID { return x.sender }

// SetSender sets the identity of the task producing the request.
func (x *Request) SetSender(pid PID) { x.sender = pid }

// Reset clears the length and sender, retaining the buffer.
func (x *Request) Reset() {
	x.length = 0
	x.sender = 0
}
