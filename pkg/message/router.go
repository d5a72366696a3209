package message

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNoRoute is returned when a target segment names no child, or a
	// message reaches a node that cannot accept it.
	ErrNoRoute = errors.New("no route for message")

	// ErrNilMessage is returned when delivering a nil message.
	ErrNilMessage = errors.New("nil message")
)

// Receiver accepts messages whose target path is exhausted.
type Receiver interface {
	ReceiveMessage(ctx context.Context, msg *Message) error
}

// Router forwards messages that still have target segments.
type Router interface {
	RouteMessage(ctx context.Context, msg *Message) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, msg *Message) error

// ReceiveMessage calls f.
func (f ReceiverFunc) ReceiveMessage(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Deliver hands msg to node: to its Receiver side when the path is
// exhausted and to its Router side otherwise.
func Deliver(ctx context.Context, node any, msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.Terminal() {
		if r, ok := node.(Receiver); ok {
			return r.ReceiveMessage(ctx, msg)
		}
		return fmt.Errorf("%w: %s reached %T, which does not receive messages", ErrNoRoute, msg.Name(), node)
	}
	if r, ok := node.(Router); ok {
		return r.RouteMessage(ctx, msg)
	}
	head, _ := msg.Head()
	return fmt.Errorf("%w: %s has segment %q left at %T, which does not route", ErrNoRoute, msg.Name(), head, node)
}

// Mux routes messages to named children. A Mux with a Receiver set also
// accepts terminal messages itself. Mux is safe for concurrent use.
type Mux struct {
	mu       sync.RWMutex
	children map[string]any
	receiver Receiver
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{children: make(map[string]any)}
}

// Handle registers node, a Receiver, a Router or both, under name.
func (m *Mux) Handle(name string, node any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[name] = node
}

// SetReceiver sets the receiver for messages addressed to the Mux itself.
func (m *Mux) SetReceiver(r Receiver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiver = r
}

// Children returns the registered child names in sorted order.
func (m *Mux) Children() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.children))
	for name := range m.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RouteMessage pops the next segment and delivers the rest to that child.
func (m *Mux) RouteMessage(ctx context.Context, msg *Message) error {
	head, rest := msg.Pop()

	m.mu.RLock()
	child, ok := m.children[head]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s has no child %q", ErrNoRoute, msg.Name(), head)
	}
	return Deliver(ctx, child, rest)
}

// ReceiveMessage passes a terminal message to the Mux's own receiver.
func (m *Mux) ReceiveMessage(ctx context.Context, msg *Message) error {
	m.mu.RLock()
	r := m.receiver
	m.mu.RUnlock()

	if r == nil {
		return fmt.Errorf("%w: %s addressed to a mux without a receiver", ErrNoRoute, msg.Name())
	}
	return r.ReceiveMessage(ctx, msg)
}
