package sockettail

import "github.com/0xflotus/aws-c-io/pipeline"

// ProcessWriteMessage hands msg's bytes to the socket's asynchronous
// write. msg is queued before the write is submitted, because WriteAsync
// may invoke completion synchronously (happy-path non-blocking writes
// complete inline) — onWriteComplete's PopFront must find msg already at
// the front. On a synchronous submission failure the queued msg is popped
// back off and the error is returned without releasing msg — the caller
// still owns it. On success the completion thunk owns msg until the write
// actually finishes.
func (h *Handler) ProcessWriteMessage(msg *pipeline.Message) error {
	h.writeQueue.PushBack(msg)
	err := h.socket.WriteAsync(msg.Bytes(), func(ioErr error) {
		h.onWriteComplete(msg, ioErr)
	})
	if err != nil {
		h.writeQueue.PopBack()
		return err
	}
	return nil
}

// onWriteComplete runs once per write, in the same order writes were
// submitted (the socket layer's FIFO completion guarantee). It fires the
// message's own completion callback, releases the message, and escalates
// to channel shutdown if the write failed.
func (h *Handler) onWriteComplete(msg *pipeline.Message, ioErr error) {
	h.writeQueue.PopFront()

	h.cfg.logger().Debug("sockettail: write complete", "bytes", msg.N, "error", ioErr)

	if msg.OnComplete != nil {
		msg.OnComplete(ioErr)
	}
	h.slot.ReleaseMessage(msg)

	if ioErr != nil {
		h.slot.Channel().Shutdown(ioErr)
	}
}
