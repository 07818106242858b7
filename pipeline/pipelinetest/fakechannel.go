package pipelinetest

import (
	"time"

	"github.com/0xflotus/aws-c-io/pipeline"
)

// FakeChannel is a pipeline.Channel whose event loop is a plain FIFO
// queue the test drives explicitly with RunNext/RunAll, instead of a real
// goroutine-backed scheduler. This keeps handler tests deterministic:
// nothing runs until the test says so.
type FakeChannel struct {
	now     time.Time
	tasks   []pipeline.Task
	Shutdowns []error
}

// NewFakeChannel returns a FakeChannel with an arbitrary fixed clock.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{now: time.Unix(0, 0)}
}

func (c *FakeChannel) ScheduleTask(task pipeline.Task, when time.Time) {
	c.tasks = append(c.tasks, task)
}

func (c *FakeChannel) Now() time.Time {
	return c.now
}

func (c *FakeChannel) Shutdown(err error) {
	c.Shutdowns = append(c.Shutdowns, err)
}

// Pending reports how many tasks are queued and not yet run.
func (c *FakeChannel) Pending() int {
	return len(c.tasks)
}

// RunNext runs the oldest queued task, reporting whether there was one.
// Tasks scheduled by the task itself are appended to the same queue and
// run by a later RunNext/RunAll call, preserving FIFO order exactly like
// the real scheduler's "now" tasks.
func (c *FakeChannel) RunNext() bool {
	if len(c.tasks) == 0 {
		return false
	}
	t := c.tasks[0]
	c.tasks = c.tasks[1:]
	t()
	return true
}

// RunAll runs queued tasks, including any they schedule, until the queue
// is empty. Returns the number of tasks run.
func (c *FakeChannel) RunAll() int {
	n := 0
	for c.RunNext() {
		n++
	}
	return n
}

var _ pipeline.Channel = (*FakeChannel)(nil)
