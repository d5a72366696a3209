// Package message defines routable messages and the routers that deliver
// them.
//
// A Message carries a name, a target path and parameters. Routers consume
// the target one segment at a time; when the path is exhausted the message
// is handed to a Receiver.
package message

import (
	"sort"
	"strings"
)

// Message is an immutable routable message.
type Message struct {
	name   string
	target []string
	params map[string]any
}

// New creates a message. Target and params are copied.
func New(name string, target []string, params map[string]any) *Message {
	m := &Message{
		name:   name,
		target: append([]string(nil), target...),
		params: make(map[string]any, len(params)),
	}
	for k, v := range params {
		m.params[k] = v
	}
	return m
}

// ParseTarget splits a delimited target path. Empty segments are dropped.
func ParseTarget(path, delimiter string) []string {
	if delimiter == "" {
		delimiter = "/"
	}
	var segments []string
	for _, s := range strings.Split(path, delimiter) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Name returns the message name.
func (m *Message) Name() string {
	return m.name
}

// Target returns a copy of the remaining target path.
func (m *Message) Target() []string {
	return append([]string(nil), m.target...)
}

// Param returns the named parameter.
func (m *Message) Param(name string) (any, bool) {
	v, ok := m.params[name]
	return v, ok
}

// Params returns a copy of the parameters.
func (m *Message) Params() map[string]any {
	out := make(map[string]any, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

// ParamNames returns the parameter names in sorted order.
func (m *Message) ParamNames() []string {
	names := make([]string, 0, len(m.params))
	for k := range m.params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Head returns the next target segment.
func (m *Message) Head() (string, bool) {
	if len(m.target) == 0 {
		return "", false
	}
	return m.target[0], true
}

// Terminal reports whether the target path is exhausted.
func (m *Message) Terminal() bool {
	return len(m.target) == 0
}

// Pop returns the next target segment and a message with that segment
// removed. m is unchanged.
func (m *Message) Pop() (string, *Message) {
	if len(m.target) == 0 {
		return "", m
	}
	rest := *m
	rest.target = m.target[1:len(m.target):len(m.target)]
	return m.target[0], &rest
}

// String renders the message as name@seg/seg for diagnostics.
func (m *Message) String() string {
	if len(m.target) == 0 {
		return m.name
	}
	return m.name + "@" + strings.Join(m.target, "/")
}
