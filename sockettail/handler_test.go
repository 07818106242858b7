package sockettail

import (
	"errors"
	"testing"

	"github.com/0xflotus/aws-c-io/errclass"
	"github.com/0xflotus/aws-c-io/pipeline"
	"github.com/0xflotus/aws-c-io/pipeline/pipelinetest"
)

func newTestHandler(maxReadSize int) (*Handler, *pipelinetest.FakeSocket, *pipelinetest.FakeSlot, *pipelinetest.FakeChannel) {
	sock := pipelinetest.NewFakeSocket()
	channel := pipelinetest.NewFakeChannel()
	slot := pipelinetest.NewFakeSlot(channel, maxReadSize)
	h := New(sock, slot, Config{MaxReadSize: maxReadSize})
	return h, sock, slot, channel
}

func TestDoRead_FullQuantumReschedules(t *testing.T) {
	_, sock, slot, channel := newTestHandler(8)

	sock.Feed([]byte("12345678")) // exactly max_rw_size, triggers doRead via Feed's readable callback

	if len(slot.Dispatched) != 1 {
		t.Fatalf("Dispatched = %d, want 1", len(slot.Dispatched))
	}
	if got := string(slot.Dispatched[0].Bytes()); got != "12345678" {
		t.Errorf("dispatched bytes = %q, want %q", got, "12345678")
	}
	if channel.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1 (follow-up read task)", channel.Pending())
	}

	channel.RunNext() // run the rescheduled read_task: socket is now empty

	if len(slot.Dispatched) != 1 {
		t.Errorf("Dispatched after empty quantum = %d, want still 1", len(slot.Dispatched))
	}
	if channel.Pending() != 0 {
		t.Errorf("Pending after would-block quantum = %d, want 0", channel.Pending())
	}
	if len(channel.Shutdowns) != 0 {
		t.Errorf("Shutdowns = %d, want 0", len(channel.Shutdowns))
	}
}

func TestDoRead_PartialReadAwaitsReadinessNoReschedule(t *testing.T) {
	_, sock, slot, channel := newTestHandler(8)

	sock.Feed([]byte("123")) // fewer than max_rw_size, next read will would-block

	if len(slot.Dispatched) != 1 {
		t.Fatalf("Dispatched = %d, want 1", len(slot.Dispatched))
	}
	if got := string(slot.Dispatched[0].Bytes()); got != "123" {
		t.Errorf("dispatched bytes = %q, want %q", got, "123")
	}
	if channel.Pending() != 0 {
		t.Errorf("Pending = %d, want 0 (partial read does not reschedule)", channel.Pending())
	}
	if len(channel.Shutdowns) != 0 {
		t.Errorf("Shutdowns = %d, want 0", len(channel.Shutdowns))
	}
}

func TestDoRead_SocketErrorInitiatesShutdown(t *testing.T) {
	_, sock, slot, channel := newTestHandler(8)

	boom := errors.New("connection reset")
	sock.Feed([]byte("123"))
	sock.FailRead(boom)
	sock.NotifyReadable(nil) // second readability edge: read fails with boom

	if len(slot.Dispatched) != 1 {
		t.Fatalf("Dispatched = %d, want 1", len(slot.Dispatched))
	}
	if len(channel.Shutdowns) != 1 {
		t.Fatalf("Shutdowns = %d, want 1", len(channel.Shutdowns))
	}
	if !errors.Is(channel.Shutdowns[0], boom) {
		t.Errorf("Shutdowns[0] = %v, want %v", channel.Shutdowns[0], boom)
	}
}

func TestDoRead_WouldBlockNeverInitiatesShutdown(t *testing.T) {
	_, sock, slot, channel := newTestHandler(8)

	sock.Feed([]byte("123"))
	sock.NotifyReadable(nil) // nothing more buffered: read returns errclass.ErrWouldBlock

	if len(slot.Dispatched) != 1 {
		t.Fatalf("Dispatched = %d, want 1", len(slot.Dispatched))
	}
	if len(channel.Shutdowns) != 0 {
		t.Errorf("Shutdowns = %d, want 0", len(channel.Shutdowns))
	}
}

func TestDoRead_DownstreamWindowCapsQuantumButDoesNotReschedule(t *testing.T) {
	h, sock, slot, channel := newTestHandler(8)
	slot.Window = 4

	sock.Feed([]byte("1234567890")) // 10 bytes available, window caps quantum at 4

	if len(slot.Dispatched) != 1 {
		t.Fatalf("Dispatched = %d, want 1", len(slot.Dispatched))
	}
	if got := string(slot.Dispatched[0].Bytes()); got != "1234" {
		t.Errorf("dispatched bytes = %q, want %q", got, "1234")
	}
	// Exactly `window` bytes were read, but window (4) != MaxReadSize (8),
	// so this quantum does not yield a follow-up read_task on its own.
	if channel.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", channel.Pending())
	}
	_ = h
}

func TestDoRead_ZeroWindowIsBackpressure(t *testing.T) {
	h, sock, slot, channel := newTestHandler(8)
	slot.Window = 0

	sock.Feed([]byte("12345678"))
	h.doRead()

	if len(slot.Dispatched) != 0 {
		t.Errorf("Dispatched = %d, want 0 under zero window", len(slot.Dispatched))
	}
	if channel.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", channel.Pending())
	}
}

func TestIncrementReadWindowSchedulesReadUnlessShuttingDown(t *testing.T) {
	h, _, _, channel := newTestHandler(8)

	if err := h.IncrementReadWindow(8); err != nil {
		t.Fatalf("IncrementReadWindow: %v", err)
	}
	if channel.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", channel.Pending())
	}
	channel.RunAll()

	h.shutdownInProgress = true
	if err := h.IncrementReadWindow(8); err != nil {
		t.Fatalf("IncrementReadWindow during shutdown: %v", err)
	}
	if channel.Pending() != 0 {
		t.Errorf("Pending = %d, want 0 (no-op during shutdown)", channel.Pending())
	}
}

func TestProcessReadMessageIsFatal(t *testing.T) {
	h, _, slot, _ := newTestHandler(8)
	msg, _ := slot.AcquireMessage(4)

	if err := h.ProcessReadMessage(msg); !errors.Is(err, ErrCantAcceptInput) {
		t.Errorf("ProcessReadMessage err = %v, want ErrCantAcceptInput", err)
	}
}

func TestInitialWindowSizeIsUnbounded(t *testing.T) {
	h, _, _, _ := newTestHandler(8)
	if h.InitialWindowSize() == 0 {
		t.Errorf("InitialWindowSize = 0, want unbounded")
	}
}

func TestProcessWriteMessageFiresCompletionAndReleases(t *testing.T) {
	h, _, slot, channel := newTestHandler(8)
	msg, _ := slot.AcquireMessage(4)
	msg.N = copy(msg.Data, []byte("abcd"))

	var gotErr error
	called := false
	msg.OnComplete = func(err error) {
		called = true
		gotErr = err
	}

	if err := h.ProcessWriteMessage(msg); err != nil {
		t.Fatalf("ProcessWriteMessage: %v", err)
	}
	if !called {
		t.Fatal("OnComplete was not invoked")
	}
	if gotErr != nil {
		t.Errorf("OnComplete err = %v, want nil", gotErr)
	}
	if len(channel.Shutdowns) != 0 {
		t.Errorf("Shutdowns = %d, want 0 on a successful write", len(channel.Shutdowns))
	}
}

func TestProcessWriteMessageSynchronousCompletionLeavesQueueEmpty(t *testing.T) {
	// FakeSocket.WriteAsync completes inline on the happy path, the same as
	// posixepoll's non-blocking fast path. ProcessWriteMessage must queue
	// msg before submitting the write so onWriteComplete's PopFront finds
	// it at the front; get this ordering wrong and the queue is left
	// holding a message pipeline.Pool has already released.
	h, _, slot, _ := newTestHandler(8)
	msg, _ := slot.AcquireMessage(4)
	msg.N = copy(msg.Data, []byte("abcd"))

	if err := h.ProcessWriteMessage(msg); err != nil {
		t.Fatalf("ProcessWriteMessage: %v", err)
	}
	if got := h.writeQueue.Len(); got != 0 {
		t.Errorf("writeQueue.Len() = %d, want 0 after a synchronous completion", got)
	}
}

func TestProcessWriteMessageSubmissionFailureKeepsOwnership(t *testing.T) {
	h, sock, slot, _ := newTestHandler(8)
	sock.Shutdown() // close the socket so WriteAsync fails synchronously

	msg, _ := slot.AcquireMessage(4)
	released := false
	msg.OnComplete = func(error) { released = true }

	err := h.ProcessWriteMessage(msg)
	if !errors.Is(err, errclass.ErrSocketClosed) {
		t.Errorf("err = %v, want ErrSocketClosed", err)
	}
	if released {
		t.Error("OnComplete fired on a submission failure; message ownership should stay with the caller")
	}
	if got := h.writeQueue.Len(); got != 0 {
		t.Errorf("writeQueue.Len() = %d, want 0: msg must be popped back off after a synchronous submission failure", got)
	}
}

func TestProcessWriteMessageFailureShutsDownChannel(t *testing.T) {
	h, sock, slot, channel := newTestHandler(8)
	msg, _ := slot.AcquireMessage(4)
	msg.N = copy(msg.Data, []byte("abcd"))

	sock.HoldCompletions = true
	if err := h.ProcessWriteMessage(msg); err != nil {
		t.Fatalf("ProcessWriteMessage: %v", err)
	}

	boom := errors.New("write failed")
	sock.FlushWritesWithError(boom)

	if len(channel.Shutdowns) != 1 {
		t.Fatalf("Shutdowns = %d, want 1", len(channel.Shutdowns))
	}
	if !errors.Is(channel.Shutdowns[0], boom) {
		t.Errorf("Shutdowns[0] = %v, want %v", channel.Shutdowns[0], boom)
	}
}

func TestShutdownReadUnsubscribesAndAcksSynchronously(t *testing.T) {
	h, sock, slot, _ := newTestHandler(8)

	if err := h.Shutdown(pipeline.DirectionRead, nil, false); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(slot.Acks) != 1 {
		t.Fatalf("Acks = %d, want 1", len(slot.Acks))
	}
	if slot.Acks[0].Direction != pipeline.DirectionRead {
		t.Errorf("Acks[0].Direction = %v, want read", slot.Acks[0].Direction)
	}
	if !sock.IsOpen() {
		t.Error("socket closed on a non-abort READ shutdown; want it left open")
	}
}

func TestShutdownReadAbortClosesSocket(t *testing.T) {
	h, sock, _, _ := newTestHandler(8)

	if err := h.Shutdown(pipeline.DirectionRead, errors.New("bye"), true); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if sock.IsOpen() {
		t.Error("socket still open after an aborted READ shutdown")
	}
}

func TestShutdownWriteDrainsQueueAndDefersAck(t *testing.T) {
	h, sock, slot, channel := newTestHandler(8)
	sock.HoldCompletions = true

	msg, _ := slot.AcquireMessage(4)
	var drainErr error
	msg.OnComplete = func(err error) { drainErr = err }
	if err := h.ProcessWriteMessage(msg); err != nil {
		t.Fatalf("ProcessWriteMessage: %v", err)
	}
	if sock.PendingWrites() != 1 {
		t.Fatalf("PendingWrites = %d, want 1", sock.PendingWrites())
	}

	if err := h.Shutdown(pipeline.DirectionWrite, nil, false); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if !errors.Is(drainErr, errclass.ErrSocketClosed) {
		t.Errorf("drainErr = %v, want ErrSocketClosed", drainErr)
	}
	if len(slot.Acks) != 0 {
		t.Fatalf("Acks = %d, want 0 before the deferred task runs", len(slot.Acks))
	}
	if channel.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1 (deferred WRITE ack)", channel.Pending())
	}

	channel.RunNext()
	if len(slot.Acks) != 1 || slot.Acks[0].Direction != pipeline.DirectionWrite {
		t.Fatalf("Acks = %+v, want one WRITE ack", slot.Acks)
	}
}

func TestShutdownWriteCancelsPendingWriteAgainstDoubleRelease(t *testing.T) {
	// A write still in flight when Shutdown(WRITE) drains the queue must
	// not also fire its socket-side completion afterward: onWriteComplete
	// would release msg back to the pool a second time otherwise.
	h, sock, slot, _ := newTestHandler(8)
	sock.HoldCompletions = true

	msg, _ := slot.AcquireMessage(4)
	completions := 0
	msg.OnComplete = func(error) { completions++ }
	if err := h.ProcessWriteMessage(msg); err != nil {
		t.Fatalf("ProcessWriteMessage: %v", err)
	}

	if err := h.Shutdown(pipeline.DirectionWrite, nil, false); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if completions != 1 {
		t.Fatalf("completions after drain = %d, want 1", completions)
	}
	if got := sock.PendingWrites(); got != 0 {
		t.Fatalf("PendingWrites after Shutdown = %d, want 0 (CancelPendingWrites must discard it)", got)
	}

	// Even if the socket layer still tried to fire the old completion
	// (simulating a stranded EPOLLOUT/EPIPE edge that raced the drain),
	// CancelPendingWrites already dropped it, so this is a no-op rather
	// than a second release.
	sock.FlushWrites()
	if completions != 1 {
		t.Errorf("completions after a stray FlushWrites = %d, want still 1 (no double release)", completions)
	}
}

func TestShutdownLatchesAndSuppressesFurtherReads(t *testing.T) {
	h, sock, slot, _ := newTestHandler(8)

	if err := h.Shutdown(pipeline.DirectionWrite, nil, false); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	sock.Feed([]byte("12345678"))
	if len(slot.Dispatched) != 0 {
		t.Errorf("Dispatched = %d, want 0 once shutdownInProgress is latched", len(slot.Dispatched))
	}
}
