// Package pipelinetest provides in-memory fakes for the pipeline
// contracts, so a handler built against pipeline.Socket/Slot/Channel can
// be unit tested without a real socket or event loop. The shape mirrors
// the teacher's own BenchmarkEpollHTTP approach of standing in a minimal
// fake network peer rather than mocking every call.
package pipelinetest

import (
	"sync"

	"github.com/0xflotus/aws-c-io/errclass"
	"github.com/0xflotus/aws-c-io/pipeline"
)

// FakeSocket is an in-memory pipeline.Socket backed by a byte queue. Read
// drains the inbound queue FIFO; once it is empty, Read reports
// errclass.ErrWouldBlock until more is pushed with Feed, or the error set
// with FailRead.
type FakeSocket struct {
	mu sync.Mutex

	inbound   [][]byte
	open      bool
	readErr   error // sticky error once set (e.g. connection reset)
	readableCB func(error)

	Writes []FakeWrite

	// HoldCompletions, when true, makes WriteAsync queue its completion
	// instead of firing it inline, so tests can exercise a handler
	// shutdown while writes are still in flight. FlushWrites runs them in
	// submission order, matching the socket layer's FIFO completion
	// guarantee.
	HoldCompletions bool
	pendingWrites   []func(error)
}

// FakeWrite records one WriteAsync call for assertions.
type FakeWrite struct {
	Data []byte
}

// NewFakeSocket returns an open FakeSocket with no buffered data.
func NewFakeSocket() *FakeSocket {
	return &FakeSocket{open: true}
}

// Feed appends data to the socket's inbound queue and, if a readability
// subscription is active, synchronously invokes it — the same way a real
// socket's readiness callback fires once bytes land in the kernel buffer.
func (s *FakeSocket) Feed(data []byte) {
	s.mu.Lock()
	s.inbound = append(s.inbound, append([]byte{}, data...))
	cb := s.readableCB
	s.mu.Unlock()

	if cb != nil {
		cb(nil)
	}
}

// FailRead makes every subsequent Read return err once the inbound queue
// is drained (instead of the default would-block).
func (s *FakeSocket) FailRead(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// NotifyReadable invokes the subscribed readability callback with err, as
// if the socket layer itself observed err (e.g. a reset).
func (s *FakeSocket) NotifyReadable(err error) {
	s.mu.Lock()
	cb := s.readableCB
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *FakeSocket) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inbound) == 0 {
		if s.readErr != nil {
			return 0, s.readErr
		}
		return 0, errclass.ErrWouldBlock
	}

	chunk := s.inbound[0]
	n := copy(buf, chunk)
	if n == len(chunk) {
		s.inbound = s.inbound[1:]
	} else {
		s.inbound[0] = chunk[n:]
	}
	return n, nil
}

func (s *FakeSocket) WriteAsync(data []byte, completion func(err error)) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return errclass.ErrSocketClosed
	}
	s.Writes = append(s.Writes, FakeWrite{Data: append([]byte{}, data...)})
	hold := s.HoldCompletions
	if hold {
		s.pendingWrites = append(s.pendingWrites, completion)
	}
	s.mu.Unlock()

	if !hold {
		completion(nil)
	}
	return nil
}

// FlushWrites runs every held write completion, in submission order, each
// with a nil error.
func (s *FakeSocket) FlushWrites() {
	s.FlushWritesWithError(nil)
}

// FlushWritesWithError runs every held write completion, in submission
// order, each with err — for exercising a handler's reaction to a failed
// asynchronous write.
func (s *FakeSocket) FlushWritesWithError(err error) {
	s.mu.Lock()
	pending := s.pendingWrites
	s.pendingWrites = nil
	s.mu.Unlock()

	for _, cb := range pending {
		cb(err)
	}
}

// PendingWrites reports how many writes are still awaiting completion.
func (s *FakeSocket) PendingWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingWrites)
}

// CancelPendingWrites drops every held write completion without running
// it, mirroring a real socket abandoning in-flight writes on shutdown.
func (s *FakeSocket) CancelPendingWrites() {
	s.mu.Lock()
	s.pendingWrites = nil
	s.mu.Unlock()
}

func (s *FakeSocket) SubscribeReadable(cb func(error)) {
	s.mu.Lock()
	s.readableCB = cb
	s.mu.Unlock()
}

func (s *FakeSocket) Unsubscribe() {
	s.mu.Lock()
	s.readableCB = nil
	s.mu.Unlock()
}

func (s *FakeSocket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *FakeSocket) Shutdown() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

func (s *FakeSocket) CleanUp() {}

var _ pipeline.Socket = (*FakeSocket)(nil)
