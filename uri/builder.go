package uri

// Options configures Build. At most one of QueryString or QueryParams may
// be non-empty; supplying both is ErrInvalidArgument.
type Options struct {
	Scheme      []byte
	HostName    []byte
	Port        uint16
	Path        []byte
	QueryString []byte
	QueryParams []Param
}

// Build synthesizes a URI from opts into a single allocated buffer, then
// re-parses that buffer so the returned URI's cursors are the product of
// the same state machine Parse uses, not a second code path that could
// drift out of sync with it.
func Build(opts Options) (*URI, error) {
	if len(opts.QueryString) > 0 && len(opts.QueryParams) > 0 {
		return nil, ErrInvalidArgument
	}

	buf := make([]byte, buildLength(opts))
	n := writeOptions(buf, opts)
	return Parse(buf[:n])
}

// buildLength computes an upper bound on the serialized size of opts so
// Build allocates exactly once.
func buildLength(opts Options) int {
	n := len(opts.HostName)
	if len(opts.Scheme) > 0 {
		n += len(opts.Scheme) + len("://")
	}
	if opts.Port != 0 {
		n += 1 + maxPortDigits // ":" + up to 5 digits
	}

	path := opts.Path
	if len(path) == 0 {
		path = staticSlash
	}
	n += len(path)

	if len(opts.QueryString) > 0 {
		n += 1 + len(opts.QueryString) // "?" + query
	} else if len(opts.QueryParams) > 0 {
		n += 1 // "?"
		for _, p := range opts.QueryParams {
			n += len(p.Key) + len(p.Value) + 2 // "=" and "&"
		}
	}
	return n
}

func writeOptions(dst []byte, opts Options) int {
	n := 0
	if len(opts.Scheme) > 0 {
		n += copy(dst[n:], opts.Scheme)
		n += copy(dst[n:], []byte("://"))
	}

	n += copy(dst[n:], opts.HostName)

	if opts.Port != 0 {
		dst[n] = ':'
		n++
		n += writePortDigits(dst[n:], opts.Port)
	}

	n += copy(dst[n:], opts.Path)

	if len(opts.QueryString) > 0 {
		dst[n] = '?'
		n++
		n += copy(dst[n:], opts.QueryString)
	} else if len(opts.QueryParams) > 0 {
		dst[n] = '?'
		n++
		for i, p := range opts.QueryParams {
			if i > 0 {
				dst[n] = '&'
				n++
			}
			n += copy(dst[n:], p.Key)
			dst[n] = '='
			n++
			n += copy(dst[n:], p.Value)
		}
	}
	return n
}

// writePortDigits writes port in decimal with no leading zeros, the same
// digit-peeling loop the teacher's IntToBuf uses for status codes.
func writePortDigits(dst []byte, port uint16) int {
	if port == 0 {
		dst[0] = '0'
		return 1
	}

	var tmp [maxPortDigits]byte
	i := len(tmp)
	n := port
	for n > 0 {
		i--
		tmp[i] = byte(n%10) + '0'
		n /= 10
	}
	return copy(dst, tmp[i:])
}
