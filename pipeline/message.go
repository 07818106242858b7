package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// Message is a pooled buffer with metadata, owned by whichever party last
// acquired it or was handed it by SendMessage. N is the number of valid
// bytes in Data; callers must not read or write past N without first
// growing Data and updating N.
type Message struct {
	Data   []byte
	N      int
	SpanID string

	// OnComplete, when non-nil, is invoked exactly once as the message is
	// finally disposed of: on a write completion with the write's result, or with
	// ErrSocketClosed when the message is drained out of a shutting-down
	// write queue.
	OnComplete func(err error)

	next *Message // intrusive link for MessageQueue
}

// Bytes returns the valid prefix of Data.
func (m *Message) Bytes() []byte {
	return m.Data[:m.N]
}

// Reset clears m for reuse by a Pool. Capacity in Data is kept.
func (m *Message) Reset() {
	m.N = 0
	m.SpanID = ""
	m.OnComplete = nil
	m.next = nil
}

// Pool hands out Messages sized to at least a requested capacity and takes
// them back. It is the default, in-process message pool a Slot
// implementation can delegate to; nothing about it is specific to sockets.
type Pool struct {
	bufs sync.Pool
}

// NewPool returns a Pool whose Messages start with defaultSize bytes of
// backing capacity, growing on demand for larger requests.
func NewPool(defaultSize int) *Pool {
	p := &Pool{}
	p.bufs.New = func() any {
		return &Message{Data: make([]byte, defaultSize)}
	}
	return p
}

// Acquire returns a Message with at least size bytes of capacity in Data.
// Acquire never fails in this in-process implementation; a pool backed by
// a fixed arena would return ErrOutOfMemory here instead.
func (p *Pool) Acquire(size int) (*Message, error) {
	m := p.bufs.Get().(*Message)
	if cap(m.Data) < size {
		m.Data = make([]byte, size)
	}
	m.Data = m.Data[:cap(m.Data)]
	m.N = 0
	m.SpanID = newSpanID()
	return m, nil
}

// Release returns m to the pool. m must not be used again by the caller
// after this returns.
func (p *Pool) Release(m *Message) {
	m.Reset()
	p.bufs.Put(m)
}

func newSpanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the system RNG is broken; fall back to an
		// empty SpanID rather than panicking inside a hot I/O path.
		return ""
	}
	return id.String()
}
