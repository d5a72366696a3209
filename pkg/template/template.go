// Package template renders strings containing {path} placeholders.
//
// A placeholder is a key path wrapped in a single pair of braces and is
// resolved with package keypath against the render context. Prefixing the
// path with % percent-encodes that placeholder's value. Wrapping a
// placeholder in two or more braces escapes it: one layer of braces is
// removed and the rest is emitted verbatim.
//
//	template.Render("Hello {user.name}!", ctx, false)
//	template.Render("/search?q={%query}", ctx, false)
//	template.Render("literal {{braces}}", ctx, false) // "literal {braces}"
//
// Templates are parsed once and can be rendered any number of times.
package template

import (
	"regexp"
	"strings"

	"github.com/openfroyo/urigraph/pkg/keypath"
)

// placeholder matches: leading literal text, opening braces, a reference
// token optionally prefixed with %, closing braces and the remainder.
var placeholder = regexp.MustCompile(`(?s)^(.*?)(\{+)(%?[A-Za-z0-9_$.]+)(\}+)(.*)$`)

// Block is one element of a parsed template: either literal text or a
// reference to a key path.
type Block struct {
	// Text is the literal text. Empty for references.
	Text string

	// Path is the key path of a reference block.
	Path string

	// Reference distinguishes reference blocks from literal blocks.
	Reference bool

	// Encode forces percent-encoding of this reference's value.
	Encode bool
}

// Template is an immutable, replayable sequence of blocks.
type Template struct {
	source string
	blocks []Block
}

// Parse splits s into literal and reference blocks. Parsing never fails:
// text that does not form a placeholder is kept as literal text.
func Parse(s string) *Template {
	t := &Template{source: s}

	rest := s
	for rest != "" {
		m := placeholder.FindStringSubmatch(rest)
		if m == nil {
			n := strings.IndexByte(rest, '}')
			if n < 0 {
				t.literal(rest)
				break
			}
			t.literal(rest[:n+1])
			rest = rest[n+1:]
			continue
		}

		prefix, open, ref, closing := m[1], m[2], m[3], m[4]
		rest = m[5]

		t.literal(prefix)
		if len(open) > 1 {
			t.literal(open[1:] + ref + closing[1:])
			continue
		}

		block := Block{Path: ref, Reference: true}
		if strings.HasPrefix(ref, "%") {
			block.Path = ref[1:]
			block.Encode = true
		}
		t.blocks = append(t.blocks, block)
		t.literal(closing[1:])
	}

	return t
}

func (t *Template) literal(text string) {
	if text == "" {
		return
	}
	t.blocks = append(t.blocks, Block{Text: text})
}

// Source returns the text the template was parsed from.
func (t *Template) Source() string {
	return t.source
}

// Blocks returns a copy of the parsed blocks.
func (t *Template) Blocks() []Block {
	return append([]Block(nil), t.blocks...)
}

// References returns the key paths referenced by the template, in order.
func (t *Template) References() []string {
	var refs []string
	for _, b := range t.blocks {
		if b.Reference {
			refs = append(refs, b.Path)
		}
	}
	return refs
}

// HasReferences reports whether rendering depends on the context.
func (t *Template) HasReferences() bool {
	for _, b := range t.blocks {
		if b.Reference {
			return true
		}
	}
	return false
}

// Render replays the blocks against ctx. Unresolved references render as
// the empty string. When encode is set every reference is percent-encoded.
func (t *Template) Render(ctx any, encode bool) string {
	var b strings.Builder
	for _, block := range t.blocks {
		if !block.Reference {
			b.WriteString(block.Text)
			continue
		}
		v, _ := keypath.Resolve(block.Path, ctx)
		s, _ := keypath.AsString(v)
		if encode || block.Encode {
			s = Encode(s)
		}
		b.WriteString(s)
	}
	return b.String()
}

// Render parses s and renders it against ctx.
func Render(s string, ctx any, encode bool) string {
	return Parse(s).Render(ctx, encode)
}

// Encode percent-encodes every byte of s outside the RFC 3986 unreserved
// set.
func Encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
