package sockettail

import (
	"github.com/0xflotus/aws-c-io/errclass"
	"github.com/0xflotus/aws-c-io/pipeline"
)

// doRead drains the socket into the pipeline for at most one scheduling
// quantum. Grounded directly on aws-c-io's s_do_read: each message is
// acquired at the full quantum capacity, while each read into it is
// bounded by the quantum's remaining budget. A quantum that reads the full
// MaxReadSize yields the event loop by scheduling a follow-up read_task
// instead of looping further; a quantum capped lower by the downstream
// window does not reschedule on its own. A quantum that comes up short
// either awaits the next readability edge (would-block) or, if the error
// is something else, escalates to channel shutdown.
func (h *Handler) doRead() {
	if h.shutdownInProgress {
		return
	}

	max := h.cfg.MaxReadSize
	if window := h.slot.DownstreamReadWindow(); window < max {
		max = window
	}
	if max <= 0 {
		return
	}

	var totalRead int
	var lastErr error

	for totalRead < max {
		msg, err := h.slot.AcquireMessage(max)
		if err != nil {
			lastErr = err
			break
		}

		n, rerr := h.socket.Read(msg.Data[:max-totalRead])
		if rerr != nil {
			h.slot.ReleaseMessage(msg)
			lastErr = rerr
			break
		}

		msg.N = n
		totalRead += n
		lastErr = nil

		h.cfg.logger().Debug("sockettail: read", "bytes", n)

		if serr := h.slot.SendMessage(msg, pipeline.DirectionRead); serr != nil {
			h.slot.ReleaseMessage(msg)
			return
		}
	}

	if totalRead < max {
		if errclass.Classify(lastErr) != errclass.WouldBlock && !h.shutdownInProgress {
			h.cfg.logger().Debug("sockettail: read error, shutting down channel", "error", lastErr)
			h.slot.Channel().Shutdown(lastErr)
		}
		return
	}

	if !h.shutdownInProgress && totalRead == h.cfg.MaxReadSize {
		h.scheduleReadTask()
	}
}
