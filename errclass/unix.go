//go:build unix

package errclass

import (
	"errors"

	"golang.org/x/sys/unix"
)

// classifyPlatform inspects err for the unix errno values this core cares
// about. Adapted from the retrieval pack's pattern of keeping one
// errno-to-label table per platform behind a build tag instead of a single
// cross-platform switch full of #ifdef-shaped branching.
func classifyPlatform(err error) Kind {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
		return WouldBlock
	case errors.Is(err, unix.ECONNRESET):
		return ConnReset
	case errors.Is(err, unix.ECONNABORTED):
		return ConnAborted
	case errors.Is(err, unix.ETIMEDOUT):
		return TimedOut
	default:
		return Generic
	}
}
