package uri

import "errors"

// ErrMalformedInput is returned when the input violates the URI grammar:
// a scheme followed by ":/" but not "://", nothing left after the scheme,
// a ":port" suffix that isn't 1-5 decimal digits <= 65535, or empty input.
var ErrMalformedInput = errors.New("uri: malformed input")

// ErrInvalidArgument is returned by Build when both QueryString and
// QueryParams are supplied; a builder may use at most one query form.
var ErrInvalidArgument = errors.New("uri: invalid argument")
