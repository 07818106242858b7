// Package sockettail implements the socket channel handler: the terminal
// tail of a pipeline that bridges a non-blocking pipeline.Socket to the
// pipeline.Slot above it. It never processes read-direction input (it has
// nothing downstream of the socket) and it holds no locks, since every
// method here runs exclusively on the owning channel's event loop thread.
package sockettail

import (
	"math"

	"github.com/0xflotus/aws-c-io/pipeline"
)

// Handler is the socket channel handler described in spec.md §4.4: it
// drives reads from socket into slot, and flushes slot's writes to
// socket. A Handler is owned exclusively by its channel and must only be
// touched from that channel's event loop thread.
type Handler struct {
	socket pipeline.Socket
	slot   pipeline.Slot
	cfg    Config

	writeQueue pipeline.MessageQueue

	shutdownErr        error
	shutdownInProgress bool
}

// New constructs a Handler over socket and slot, and subscribes to the
// socket's readable events. The returned Handler starts receiving
// do_read calls as soon as the socket reports data available.
func New(socket pipeline.Socket, slot pipeline.Slot, cfg Config) *Handler {
	if cfg.MaxReadSize <= 0 {
		cfg.MaxReadSize = DefaultMaxReadSize
	}
	h := &Handler{socket: socket, slot: slot, cfg: cfg}
	socket.SubscribeReadable(h.onReadable)
	cfg.logger().Info("sockettail: handler created", "max_read_size", cfg.MaxReadSize)
	return h
}

// ProcessReadMessage is never valid: this handler is terminal in the read
// direction, so the channel framework dispatching a read-direction
// message into it is a programmer error.
func (h *Handler) ProcessReadMessage(msg *pipeline.Message) error {
	return ErrCantAcceptInput
}

// InitialWindowSize reports this handler's read window as unbounded; it
// is a socket, not a flow-controlled stage, so it never declines to read
// on its own account.
func (h *Handler) InitialWindowSize() uint64 {
	return math.MaxUint64
}

// IncrementReadWindow schedules a read at "now" on the channel, unless a
// shutdown is already underway, in which case it is a no-op.
func (h *Handler) IncrementReadWindow(n int) error {
	if h.shutdownInProgress {
		return nil
	}
	h.scheduleReadTask()
	return nil
}

// Destroy releases the socket's resources. The Handler itself needs no
// explicit release beyond that; Go's GC takes care of the struct.
func (h *Handler) Destroy() {
	h.socket.CleanUp()
	h.cfg.logger().Info("sockettail: handler destroyed")
}

func (h *Handler) onReadable(err error) {
	if err == nil {
		h.doRead()
		return
	}
	if !h.shutdownInProgress {
		h.cfg.logger().Debug("sockettail: readability error", "error", err)
		h.slot.Channel().Shutdown(err)
	}
}

func (h *Handler) scheduleReadTask() {
	channel := h.slot.Channel()
	channel.ScheduleTask(h.doRead, channel.Now())
}
