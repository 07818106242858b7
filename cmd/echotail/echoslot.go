package main

import (
	"github.com/0xflotus/aws-c-io/pipeline"
	"github.com/0xflotus/aws-c-io/posixepoll"
	"github.com/0xflotus/aws-c-io/sockettail"
)

// echoSlot is the smallest possible pipeline.Slot: it has no protocol
// logic and no downstream stages, so every message a Handler dispatches
// with SendMessage is immediately resubmitted as a write on the same
// Handler. This is deliberately not a channel framework (spec.md scopes
// that out) — it is a one-handler loop, just enough to run sockettail
// end to end in this demo binary.
type echoSlot struct {
	loop    *posixepoll.Loop
	pool    *pipeline.Pool
	handler *sockettail.Handler
}

func newEchoSlot(loop *posixepoll.Loop, pool *pipeline.Pool) *echoSlot {
	return &echoSlot{loop: loop, pool: pool}
}

func (s *echoSlot) AcquireMessage(size int) (*pipeline.Message, error) {
	return s.pool.Acquire(size)
}

func (s *echoSlot) ReleaseMessage(msg *pipeline.Message) {
	s.pool.Release(msg)
}

func (s *echoSlot) SendMessage(msg *pipeline.Message, dir pipeline.Direction) error {
	if dir != pipeline.DirectionRead {
		return nil
	}
	echoed, err := s.pool.Acquire(msg.N)
	if err != nil {
		return err
	}
	echoed.N = copy(echoed.Data, msg.Bytes())
	if err := s.handler.ProcessWriteMessage(echoed); err != nil {
		s.ReleaseMessage(echoed)
		return err
	}

	s.ReleaseMessage(msg)
	return nil
}

func (s *echoSlot) DownstreamReadWindow() int {
	return sockettail.DefaultMaxReadSize
}

func (s *echoSlot) OnHandlerShutdownComplete(dir pipeline.Direction, err error, abort bool) {
	if dir == pipeline.DirectionWrite {
		s.handler.Destroy()
	}
}

func (s *echoSlot) Channel() pipeline.Channel {
	return s.loop
}

var _ pipeline.Slot = (*echoSlot)(nil)
