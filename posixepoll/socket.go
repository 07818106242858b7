//go:build linux

package posixepoll

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/0xflotus/aws-c-io/errclass"
	"github.com/0xflotus/aws-c-io/pipeline"
)

// pendingWrite is one queued WriteAsync call awaiting EPOLLOUT, once a
// synchronous unix.Write comes up short.
type pendingWrite struct {
	data       []byte
	sent       int
	completion func(err error)
}

// Socket is a pipeline.Socket over a non-blocking file descriptor,
// registered on exactly one Loop. It is grounded on the teacher's
// listenSocket/StartEpoll non-blocking-fd handling, generalized from a
// fixed EPOLLIN|EPOLLONESHOT registration into the subscribe/unsubscribe
// and backpressured-write shape pipeline.Socket needs.
type Socket struct {
	loop *Loop
	fd   int

	mu         sync.Mutex
	open       bool
	wantRead   bool
	wantWrite  bool
	readableCB func(error)
	writes     []pendingWrite
}

// NewSocket registers fd (which must already be non-blocking) on loop,
// initially subscribed to neither readable nor writable edges.
func NewSocket(loop *Loop, fd int) (*Socket, error) {
	s := &Socket{loop: loop, fd: fd, open: true}
	if err := loop.register(fd, 0, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Socket) currentEvents() uint32 {
	var ev uint32
	if s.wantRead {
		ev |= unix.EPOLLIN
	}
	if s.wantWrite {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (s *Socket) Read(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, errclass.ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, errclass.ErrSocketClosed
	}
	return n, nil
}

// WriteAsync attempts a synchronous unix.Write first, since the common
// case for a healthy, unsaturated socket is that it succeeds outright.
// A short write (EAGAIN, or fewer bytes accepted than requested) queues
// the remainder and subscribes to EPOLLOUT; handleEvent drains the queue
// as writability edges arrive, firing each completion in submission
// order once its bytes are fully flushed.
func (s *Socket) WriteAsync(data []byte, completion func(err error)) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return errclass.ErrSocketClosed
	}
	queueEmpty := len(s.writes) == 0
	s.mu.Unlock()

	sent := 0
	if queueEmpty {
		n, err := s.tryWrite(data)
		sent = n
		if err != nil && err != errclass.ErrWouldBlock {
			return err
		}
	}

	if sent == len(data) {
		completion(nil)
		return nil
	}

	s.mu.Lock()
	s.writes = append(s.writes, pendingWrite{data: data, sent: sent, completion: completion})
	s.wantWrite = true
	ev := s.currentEvents()
	s.mu.Unlock()

	return s.loop.modify(s.fd, ev)
}

func (s *Socket) tryWrite(data []byte) (int, error) {
	n, err := unix.Write(s.fd, data)
	if err != nil {
		// unix.Write reports n == -1 on error; nothing was written.
		if err == unix.EAGAIN {
			return 0, errclass.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

// CancelPendingWrites drops every queued write without running its
// completion. Called once a handler has drained and released the messages
// those writes belong to, so a later EPOLLOUT/EPIPE edge can never fire a
// completion against an already-released Message.
func (s *Socket) CancelPendingWrites() {
	s.mu.Lock()
	s.writes = nil
	s.wantWrite = false
	ev := s.currentEvents()
	s.mu.Unlock()
	s.loop.modify(s.fd, ev)
}

func (s *Socket) SubscribeReadable(cb func(err error)) {
	s.mu.Lock()
	s.readableCB = cb
	s.wantRead = cb != nil
	ev := s.currentEvents()
	s.mu.Unlock()
	s.loop.modify(s.fd, ev)
}

func (s *Socket) Unsubscribe() {
	s.mu.Lock()
	s.readableCB = nil
	s.wantRead = false
	ev := s.currentEvents()
	s.mu.Unlock()
	s.loop.modify(s.fd, ev)
}

func (s *Socket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Socket) Shutdown() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return unix.Shutdown(s.fd, unix.SHUT_RDWR)
}

func (s *Socket) CleanUp() {
	s.loop.deregister(s.fd)
	unix.Close(s.fd)
}

// handleEvent runs on the loop goroutine, dispatched from Loop.Run.
func (s *Socket) handleEvent(events uint32) {
	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		s.notifyReadable(errclass.ErrSocketClosed)
		return
	}
	if events&unix.EPOLLOUT != 0 {
		s.flushWrites()
	}
	if events&unix.EPOLLIN != 0 {
		s.notifyReadable(nil)
	}
}

func (s *Socket) notifyReadable(err error) {
	s.mu.Lock()
	cb := s.readableCB
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (s *Socket) flushWrites() {
	for {
		s.mu.Lock()
		if len(s.writes) == 0 {
			s.wantWrite = false
			ev := s.currentEvents()
			s.mu.Unlock()
			s.loop.modify(s.fd, ev)
			return
		}
		pw := s.writes[0]
		s.mu.Unlock()

		n, err := s.tryWrite(pw.data[pw.sent:])
		if err != nil {
			if err == errclass.ErrWouldBlock {
				return
			}
			s.mu.Lock()
			s.writes = s.writes[1:]
			s.mu.Unlock()
			pw.completion(err)
			continue
		}

		pw.sent += n
		if pw.sent < len(pw.data) {
			s.mu.Lock()
			s.writes[0] = pw
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.writes = s.writes[1:]
		s.mu.Unlock()
		pw.completion(nil)
	}
}

var _ pipeline.Socket = (*Socket)(nil)
