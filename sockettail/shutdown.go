package sockettail

import (
	"github.com/0xflotus/aws-c-io/errclass"
	"github.com/0xflotus/aws-c-io/pipeline"
)

// Shutdown implements the handler's half of the channel shutdown
// protocol. shutdownInProgress latches true on the first call; every
// subsequent read-loop decision consults it so shutdown never re-enters
// or reschedules work.
//
// READ direction always unsubscribes from socket readability before
// acknowledging, regardless of abort — this resolves spec.md §9's open
// question in favor of never letting a post-shutdown readability
// callback fire at all, rather than merely tolerating it as a no-op.
// Only an aborted READ shutdown actually tears the socket down; a
// graceful one leaves that to the WRITE-direction shutdown that follows.
func (h *Handler) Shutdown(dir pipeline.Direction, err error, abort bool) error {
	h.shutdownInProgress = true
	h.cfg.logger().Info("sockettail: shutdown", "direction", dir, "abort", abort, "error", err)

	if dir == pipeline.DirectionRead {
		h.socket.Unsubscribe()
		if abort && h.socket.IsOpen() {
			if serr := h.socket.Shutdown(); serr != nil {
				return serr
			}
		}
		h.slot.OnHandlerShutdownComplete(dir, err, abort)
		return nil
	}

	h.writeQueue.DrainEach(func(msg *pipeline.Message) {
		if msg.OnComplete != nil {
			msg.OnComplete(errclass.ErrSocketClosed)
		}
		h.slot.ReleaseMessage(msg)
	})
	// Every drained message above is released back to the pool; abandon
	// their writes at the socket too, or a completion that fires after
	// this point (a post-shutdown EPOLLOUT/EPIPE edge) would call
	// onWriteComplete against an already-released Message a second time.
	h.socket.CancelPendingWrites()

	h.socket.Unsubscribe()
	if h.socket.IsOpen() {
		h.socket.Shutdown()
	}

	// Deferring the acknowledgement (rather than calling it inline) lets
	// any read_task already scheduled before this call run first and
	// observe shutdownInProgress on a now-closed socket, instead of racing
	// handler teardown. Both enqueue at "now" on the same FIFO scheduler,
	// so ordering is guaranteed, not incidental.
	h.shutdownErr = err
	channel := h.slot.Channel()
	channel.ScheduleTask(func() {
		h.slot.OnHandlerShutdownComplete(pipeline.DirectionWrite, h.shutdownErr, false)
	}, channel.Now())
	return nil
}
