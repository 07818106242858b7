package pipeline

import "errors"

// ErrOutOfMemory is returned by AcquireMessage/Pool.Acquire implementations
// that are backed by a bounded arena instead of the Go heap, once that
// arena is exhausted.
var ErrOutOfMemory = errors.New("pipeline: out of memory")
