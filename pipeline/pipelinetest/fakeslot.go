package pipelinetest

import "github.com/0xflotus/aws-c-io/pipeline"

// ShutdownAck records one call to OnHandlerShutdownComplete.
type ShutdownAck struct {
	Direction pipeline.Direction
	Err       error
	Abort     bool
}

// FakeSlot is a pipeline.Slot backed by a real pipeline.Pool, with a
// settable downstream window and a record of every dispatched message,
// for assertions.
type FakeSlot struct {
	pool    *pipeline.Pool
	channel *FakeChannel

	Window int

	Dispatched []*pipeline.Message
	SendErr    error // when non-nil, SendMessage fails with this error

	Acks []ShutdownAck
}

// NewFakeSlot returns a FakeSlot whose pool starts messages at
// defaultMsgSize bytes of backing capacity.
func NewFakeSlot(channel *FakeChannel, defaultMsgSize int) *FakeSlot {
	return &FakeSlot{
		pool:    pipeline.NewPool(defaultMsgSize),
		channel: channel,
		Window:  int(^uint(0) >> 1), // max int, i.e. "unbounded" unless overridden
	}
}

func (s *FakeSlot) AcquireMessage(size int) (*pipeline.Message, error) {
	return s.pool.Acquire(size)
}

func (s *FakeSlot) ReleaseMessage(msg *pipeline.Message) {
	s.pool.Release(msg)
}

func (s *FakeSlot) SendMessage(msg *pipeline.Message, dir pipeline.Direction) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	if dir == pipeline.DirectionRead {
		s.Dispatched = append(s.Dispatched, msg)
	}
	return nil
}

func (s *FakeSlot) DownstreamReadWindow() int {
	return s.Window
}

func (s *FakeSlot) OnHandlerShutdownComplete(dir pipeline.Direction, err error, abort bool) {
	s.Acks = append(s.Acks, ShutdownAck{Direction: dir, Err: err, Abort: abort})
}

func (s *FakeSlot) Channel() pipeline.Channel {
	return s.channel
}

var _ pipeline.Slot = (*FakeSlot)(nil)
