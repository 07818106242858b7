package uri

import "bytes"

// Param is a single key/value pair out of a query string. Value is empty
// (not nil) when the pair had no '='.
type Param struct {
	Key, Value []byte
}

// QueryStringParams splits u's query string on '&' and appends one Param
// per segment to *out. A segment with no '=' becomes Key=segment,
// Value="". On failure *out is reset to nil; success never drops prior
// entries already present in *out, matching append's usual semantics.
func QueryStringParams(u *URI, out *[]Param) error {
	params, err := splitQueryParams(u.QueryString(), *out)
	if err != nil {
		*out = nil
		return err
	}
	*out = params
	return nil
}

func splitQueryParams(query []byte, out []Param) ([]Param, error) {
	if len(query) == 0 {
		return out, nil
	}

	rest := query
	for {
		amp := bytes.IndexByte(rest, '&')
		var segment []byte
		if amp == -1 {
			segment = rest
		} else {
			segment = rest[:amp]
		}

		eq := bytes.IndexByte(segment, '=')
		if eq == -1 {
			out = append(out, Param{Key: segment, Value: segment[len(segment):]})
		} else {
			out = append(out, Param{Key: segment[:eq], Value: segment[eq+1:]})
		}

		if amp == -1 {
			break
		}
		rest = rest[amp+1:]
	}
	return out, nil
}
