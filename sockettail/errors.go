package sockettail

import "errors"

// ErrCantAcceptInput is returned by ProcessReadMessage. This handler is
// terminal in the read direction; the channel framework dispatching a
// read-direction message into it is a programmer error, not a runtime
// condition this handler can recover from.
var ErrCantAcceptInput = errors.New("sockettail: handler cannot accept read-direction input")
