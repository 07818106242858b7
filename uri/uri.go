// Package uri implements a zero-copy URI parser and builder over a single
// owned byte buffer.
//
// A URI owns exactly one contiguous buffer holding the full text; every
// other field is a non-owning cursor (start and end offsets) into that buffer.
// Cursors stay valid for the lifetime of the URI and become stale the
// moment the URI is discarded, the same way engine.View stays bound to a
// Session's Buf.
package uri

// staticSlash backs the default path "/" for URIs parsed or built without
// an explicit path. Path and PathAndQuery return this single shared byte
// when pathIsStatic/pathAndQueryIsStatic is set, so no per-URI allocation
// is needed for it.
var staticSlash = []byte("/")

// View is a cursor into a byte buffer: a start offset and an end offset,
// not a start+length, so zero value View{} reads as an empty, valid cursor.
type View struct {
	St, End uint32
}

// Len reports the number of bytes the view covers.
func (v View) Len() int {
	return int(v.End - v.St)
}

// Empty reports whether the view covers zero bytes.
func (v View) Empty() bool {
	return v.St == v.End
}

// Bytes resolves the view against buf. Callers must pass the same buffer
// the view was cut from; there is nothing in a View itself that ties it to
// one buffer.
func (v View) Bytes(buf []byte) []byte {
	return buf[v.St:v.End]
}

// URI is the parsed (or built) record. Buf is the single owned buffer;
// every other field is a View into either Buf or the shared staticSlash.
type URI struct {
	buf []byte

	scheme       View
	authority    View
	hostName     View
	port         uint16
	path         View
	pathAndQuery View
	queryString  View

	// pathIsStatic and pathAndQueryIsStatic independently gate Path and
	// PathAndQuery onto staticSlash: an authority that runs straight into
	// a query string with no path in between defaults Path to "/" but
	// PathAndQuery still has a real "?query" cursor to return, so the two
	// can't share one flag.
	pathIsStatic         bool
	pathAndQueryIsStatic bool
}

func (u *URI) bufFor(v View, static bool) []byte {
	if static {
		return staticSlash
	}
	return v.Bytes(u.buf)
}

// Scheme returns the scheme cursor, empty if the URI had none.
func (u *URI) Scheme() []byte { return u.scheme.Bytes(u.buf) }

// Authority returns host[:port] as found between "://" and the first
// '/' or '?' (or end of input).
func (u *URI) Authority() []byte { return u.authority.Bytes(u.buf) }

// HostName returns the authority with any ":port" suffix stripped.
func (u *URI) HostName() []byte { return u.hostName.Bytes(u.buf) }

// Port returns the parsed port, or 0 if the authority had none.
func (u *URI) Port() uint16 { return u.port }

// Path returns the path cursor. Defaults to "/" (the shared static slash)
// when the input had no explicit path.
func (u *URI) Path() []byte { return u.bufFor(u.path, u.pathIsStatic) }

// PathAndQuery returns path plus "?query" (if any) as a single cursor.
func (u *URI) PathAndQuery() []byte { return u.bufFor(u.pathAndQuery, u.pathAndQueryIsStatic) }

// QueryString returns the substring after '?', excluding '?' itself.
// Empty (never nil) when the URI had no query.
func (u *URI) QueryString() []byte {
	if u.queryString.St == 0 && u.queryString.End == 0 {
		return u.buf[:0]
	}
	return u.queryString.Bytes(u.buf)
}

// String renders the URI's owned buffer as a string. Unlike the cursor
// accessors this copies once; use it only when a plain string is needed.
func (u *URI) String() string {
	return string(u.buf)
}

// Release discards the URI's owned buffer. After Release every accessor on
// u is invalid; Release itself is safe to call more than once.
func (u *URI) Release() {
	*u = URI{}
}
