package curi

import (
	"net/url"
	"strings"
)

const (
	nameReserved    = "#+@%()"
	paramReserved   = "#+@%()="
	literalReserved = "+@%()"
)

// Parse parses raw into a URI. Nested parameter URIs are parsed but never
// dereferenced. Every error wraps ErrMalformed.
func Parse(raw string) (*URI, error) {
	if raw == "" {
		return nil, syntaxError(raw, 0, "empty uri")
	}
	return parseRange(raw, 0, len(raw))
}

// MustParse is like Parse but panics on malformed input. Intended for
// literals in code and tests.
func MustParse(raw string) *URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// LooksLikeURI reports whether s starts with a syntactically valid
// "scheme:" prefix.
func LooksLikeURI(s string) bool {
	return schemeEnd(s) > 0
}

// schemeEnd returns the index of the colon terminating a valid scheme, or
// -1 when s does not start with one.
func schemeEnd(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			if i == 0 {
				return -1
			}
			return i
		case isAlpha(c):
		case i > 0 && (isDigit(c) || c == '.' || c == '-'):
		default:
			return -1
		}
	}
	return -1
}

func parseRange(raw string, lo, hi int) (*URI, error) {
	colon := schemeEnd(raw[lo:hi])
	if colon <= 0 {
		return nil, syntaxError(raw, lo, "missing scheme")
	}

	u := &URI{
		scheme: raw[lo : lo+colon],
		raw:    raw[lo:hi],
	}

	pos := lo + colon + 1
	end, err := scan(raw, pos, hi, "#+@")
	if err != nil {
		return nil, err
	}
	if u.name, err = unescape(raw, pos, end); err != nil {
		return nil, err
	}

	if end < hi && raw[end] == '#' {
		start := end + 1
		if end, err = scan(raw, start, hi, "+@"); err != nil {
			return nil, err
		}
		if u.fragment, err = unescape(raw, start, end); err != nil {
			return nil, err
		}
		u.hasFragment = true
	}

	for end < hi && raw[end] == '+' {
		start := end + 1
		if end, err = scan(raw, start, hi, "+@"); err != nil {
			return nil, err
		}
		param, err := parseParam(raw, start, end)
		if err != nil {
			return nil, err
		}
		u.params = append(u.params, param)
	}

	if end < hi && raw[end] == '@' {
		if end+1 == hi {
			return nil, syntaxError(raw, end, "empty context")
		}
		if u.context, err = parseValue(raw, end+1, hi); err != nil {
			return nil, err
		}
		u.hasContext = true
	}

	for i := range u.params {
		if !u.params[i].Positional {
			continue
		}
		if u.hasContext {
			u.params[i].Value = u.context
		} else {
			u.params[i].Value = true
		}
	}

	return u, nil
}

func parseParam(raw string, lo, hi int) (Param, error) {
	if lo == hi {
		return Param{}, syntaxError(raw, lo, "empty parameter")
	}
	eq := strings.IndexByte(raw[lo:hi], '=')
	if eq == 0 {
		return Param{}, syntaxError(raw, lo, "parameter without a name")
	}
	if eq < 0 {
		name, err := unescape(raw, lo, hi)
		if err != nil {
			return Param{}, err
		}
		return Param{Name: name, Positional: true}, nil
	}

	name, err := unescape(raw, lo, lo+eq)
	if err != nil {
		return Param{}, err
	}
	value, err := parseValue(raw, lo+eq+1, hi)
	if err != nil {
		return Param{}, err
	}
	return Param{Name: name, Value: value}, nil
}

// parseValue parses a parameter or context value occupying raw[lo:hi].
func parseValue(raw string, lo, hi int) (any, error) {
	text := raw[lo:hi]
	if text == "" {
		return "", nil
	}

	if text[0] == '(' {
		closing, err := matchParen(raw, lo, hi)
		if err != nil {
			return nil, err
		}
		if closing != hi-1 {
			return nil, syntaxError(raw, closing+1, "unexpected text after ')'")
		}
		if LooksLikeURI(raw[lo+1 : closing]) {
			return parseRange(raw, lo+1, closing)
		}
		return unescape(raw, lo+1, closing)
	}

	if LooksLikeURI(text) {
		return parseRange(raw, lo, hi)
	}
	return unescape(raw, lo, hi)
}

// scan returns the index of the first byte in stops found outside
// parentheses, or hi when there is none.
func scan(raw string, lo, hi int, stops string) (int, error) {
	depth := 0
	for i := lo; i < hi; i++ {
		c := raw[i]
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return 0, syntaxError(raw, i, "unbalanced ')'")
			}
			depth--
		case depth == 0 && strings.IndexByte(stops, c) >= 0:
			return i, nil
		}
	}
	if depth != 0 {
		return 0, syntaxError(raw, hi, "unclosed '('")
	}
	return hi, nil
}

// matchParen returns the index of the ')' matching the '(' at lo.
func matchParen(raw string, lo, hi int) (int, error) {
	depth := 0
	for i := lo; i < hi; i++ {
		switch raw[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, syntaxError(raw, hi, "unclosed '('")
}

func unescape(raw string, lo, hi int) (string, error) {
	s := raw[lo:hi]
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return "", syntaxError(raw, lo, "invalid percent escape")
	}
	return out, nil
}

func escape(s, reserved string) string {
	if !strings.ContainsAny(s, reserved) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(reserved, c) >= 0 {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeLiteral escapes a literal so it cannot be mistaken for a nested
// URI or a separator when re-parsed.
func escapeLiteral(s string) string {
	out := escape(s, literalReserved)
	if colon := schemeEnd(out); colon > 0 {
		out = out[:colon] + "%3A" + out[colon+1:]
	}
	return out
}

const upperhex = "0123456789ABCDEF"

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
