//go:build linux

// Package posixepoll is a Linux epoll-backed pipeline.Channel: a single
// event loop thread that owns a set of sockets, dispatches their
// readability/writability edges, and runs the scheduled-task queue every
// socket channel handler relies on for read-window backpressure and
// deferred shutdown acknowledgement. It is grounded directly on the
// teacher's server/engine/epoll.go StartEpoll loop, generalized from a
// fixed HTTP worker-pool dispatch into the pipeline.Channel contract.
package posixepoll

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/0xflotus/aws-c-io/pipeline"
	"github.com/0xflotus/aws-c-io/sockettail"
)

const maxEvents = 128

// Loop is a pipeline.Channel running on exactly one goroutine: Run must
// only ever be called once, from the goroutine that will own every
// Socket registered on it. Every Socket method and every scheduled Task
// runs on that same goroutine. The loop's mutex guards the task queue,
// which ScheduleTask can be called into from arbitrary goroutines (e.g.
// IncrementReadWindow triggered by a downstream consumer off-loop), and
// the fd-to-Socket map; each Socket guards its own fields with its own
// mutex.
type Loop struct {
	epollFd int
	logger  sockettail.SLogger

	mu      sync.Mutex
	tasks   []pipeline.Task
	sockets map[int32]*Socket

	shutdownOnce sync.Once
	shutdownErr  error
	closeCh      chan struct{}
}

// NewLoop creates an epoll instance. Run must be called to actually pump
// events; NewLoop alone does no I/O beyond epoll_create1.
func NewLoop() (*Loop, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Loop{
		epollFd: fd,
		logger:  sockettail.DefaultSLogger(),
		sockets: make(map[int32]*Socket),
		closeCh: make(chan struct{}),
	}, nil
}

// SetLogger overrides the loop's SLogger; the zero value logs nothing.
func (l *Loop) SetLogger(logger sockettail.SLogger) {
	if logger != nil {
		l.logger = logger
	}
}

// ScheduleTask implements pipeline.Channel. It is safe to call from any
// goroutine; the task itself always runs on the loop goroutine, during
// Run's next pass over the task queue.
func (l *Loop) ScheduleTask(task pipeline.Task, when time.Time) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
}

// Now implements pipeline.Channel with the wall clock; this loop has no
// use for a virtual clock the way pipelinetest.FakeChannel does.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Shutdown implements pipeline.Channel. The first call records err and
// closes closeCh, which Run checks before each EpollWait (whose timeout is
// 50ms); subsequent calls are no-ops. Run's caller is responsible for tearing down registered
// sockets once Run returns.
func (l *Loop) Shutdown(err error) {
	l.shutdownOnce.Do(func() {
		l.shutdownErr = err
		close(l.closeCh)
	})
}

// Err reports the error Shutdown was first called with, or nil if the
// loop has not been shut down.
func (l *Loop) Err() error {
	return l.shutdownErr
}

// register adds fd to the epoll interest set watching for ev, and
// records sock so dispatch can find it by fd.
func (l *Loop) register(fd int, ev uint32, sock *Socket) error {
	l.mu.Lock()
	l.sockets[int32(fd)] = sock
	l.mu.Unlock()

	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: ev,
		Fd:     int32(fd),
	})
}

func (l *Loop) modify(fd int, ev uint32) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: ev,
		Fd:     int32(fd),
	})
}

func (l *Loop) deregister(fd int) {
	l.mu.Lock()
	delete(l.sockets, int32(fd))
	l.mu.Unlock()
	unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (l *Loop) socketFor(fd int32) *Socket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sockets[fd]
}

// Run pumps epoll_wait in a loop, dispatching readable/writable edges to
// the Socket registered for each fd and draining the scheduled-task
// queue after every pass, until Shutdown is called. EpollWait errors are
// logged and the loop keeps going. It returns the error Shutdown was
// called with (nil for a clean stop).
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, maxEvents)

	for {
		select {
		case <-l.closeCh:
			return l.shutdownErr
		default:
		}

		n, err := unix.EpollWait(l.epollFd, events, 50)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			l.logger.Debug("posixepoll: EpollWait error", "error", err)
			continue
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			sock := l.socketFor(ev.Fd)
			if sock == nil {
				continue
			}
			sock.handleEvent(ev.Events)
		}

		l.runTasks()
	}
}

func (l *Loop) runTasks() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.tasks[0]
		l.tasks = l.tasks[1:]
		l.mu.Unlock()
		task()
	}
}

var _ pipeline.Channel = (*Loop)(nil)
