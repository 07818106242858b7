package uri

import "bytes"

// parser drives the SCHEME -> AUTHORITY -> PATH -> QUERY_STRING -> FINISHED
// state machine over a single owned buffer. Each state locates its
// delimiter with one linear scan (bytes.IndexByte) and advances pos; there
// is no backtracking and no sub-allocation beyond the buffer itself.
type parser struct {
	buf []byte
	pos int

	pathAndQuerySet bool
}

const maxPortDigits = 5
const maxPort = 65535

// Parse parses raw into a URI. The URI owns a copy of raw; raw itself is
// never retained. On any grammar violation the partially filled record is
// zeroed, its buffer dropped, and Parse returns nil with ErrMalformedInput.
func Parse(raw []byte) (*URI, error) {
	buf := make([]byte, len(raw))
	copy(buf, raw)

	u := &URI{buf: buf}
	p := &parser{buf: buf}

	if err := p.run(u); err != nil {
		u.Release()
		return nil, err
	}
	return u, nil
}

func (p *parser) run(u *URI) error {
	if err := p.scheme(u); err != nil {
		return err
	}
	if err := p.authority(u); err != nil {
		return err
	}
	return nil
}

func (p *parser) scheme(u *URI) error {
	rest := p.buf[p.pos:]
	colon := bytes.IndexByte(rest, ':')
	if colon == -1 {
		return nil // no scheme, don't advance
	}
	colonAbs := p.pos + colon

	if colonAbs+1 >= len(p.buf) || p.buf[colonAbs+1] != '/' {
		return nil // byte after ':' isn't '/': no scheme
	}
	if colonAbs+2 >= len(p.buf) || p.buf[colonAbs+2] != '/' {
		return ErrMalformedInput // single slash, not "://"
	}

	u.scheme = View{St: uint32(p.pos), End: uint32(colonAbs)}
	p.pos = colonAbs + 3
	return nil
}

func (p *parser) authority(u *URI) error {
	rest := p.buf[p.pos:]
	slash := bytes.IndexByte(rest, '/')
	qmark := bytes.IndexByte(rest, '?')

	if slash == -1 && qmark == -1 {
		if len(rest) == 0 {
			return ErrMalformedInput
		}
		u.authority = View{St: uint32(p.pos), End: uint32(len(p.buf))}
		if err := p.splitAuthority(u); err != nil {
			return err
		}
		u.pathIsStatic = true
		u.pathAndQueryIsStatic = true
		return nil
	}

	if len(rest) == 0 {
		return ErrMalformedInput
	}

	delim := slash
	isSlash := true
	if slash == -1 || (qmark != -1 && qmark < slash) {
		delim = qmark
		isSlash = false
	}
	delimAbs := p.pos + delim

	u.authority = View{St: uint32(p.pos), End: uint32(delimAbs)}
	if err := p.splitAuthority(u); err != nil {
		return err
	}

	p.pos = delimAbs
	if isSlash {
		return p.path(u)
	}
	u.pathIsStatic = true
	return p.queryStringState(u)
}

// splitAuthority parses host[:port] out of u.authority.
func (p *parser) splitAuthority(u *URI) error {
	authority := u.authority.Bytes(p.buf)
	colon := bytes.IndexByte(authority, ':')
	if colon == -1 {
		u.hostName = u.authority
		u.port = 0
		return nil
	}

	hostEnd := u.authority.St + uint32(colon)
	u.hostName = View{St: u.authority.St, End: hostEnd}

	digits := authority[colon+1:]
	if len(digits) == 0 || len(digits) > maxPortDigits {
		return ErrMalformedInput
	}

	var value uint32
	for _, c := range digits {
		if c < '0' || c > '9' {
			return ErrMalformedInput
		}
		value = value*10 + uint32(c-'0')
	}
	if value > maxPort {
		return ErrMalformedInput
	}

	u.port = uint16(value)
	return nil
}

func (p *parser) path(u *URI) error {
	u.pathAndQuery = View{St: uint32(p.pos), End: uint32(len(p.buf))}
	p.pathAndQuerySet = true

	if p.pos >= len(p.buf) {
		return ErrMalformedInput
	}

	rest := p.buf[p.pos:]
	qmark := bytes.IndexByte(rest, '?')
	if qmark == -1 {
		u.path = View{St: uint32(p.pos), End: uint32(len(p.buf))}
		return nil
	}

	qAbs := p.pos + qmark
	u.path = View{St: uint32(p.pos), End: uint32(qAbs)}
	p.pos = qAbs
	return p.queryStringState(u)
}

func (p *parser) queryStringState(u *URI) error {
	if !p.pathAndQuerySet {
		u.pathAndQuery = View{St: uint32(p.pos), End: uint32(len(p.buf))}
	}

	if p.pos < len(p.buf) && p.buf[p.pos] == '?' {
		p.pos++
	}
	u.queryString = View{St: uint32(p.pos), End: uint32(len(p.buf))}
	return nil
}
