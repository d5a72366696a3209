package schemes

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/urigraph/pkg/engine"
)

// ErrNoStore is returned by LocalValue operations when the local scheme was
// configured without a store.
var ErrNoStore = errors.New("no local store configured")

// Local dereferences local:name to a handle on a stored value. A handle is
// returned whether or not the store holds a value for name.
type Local struct {
	Store engine.LocalStore
}

// Dereference implements engine.Scheme.
func (l *Local) Dereference(_ context.Context, req *engine.Request) (any, error) {
	return &LocalValue{name: req.URI.Name(), store: l.Store}, nil
}

// LocalValue is a handle bound to one named entry. Reads and writes go to
// the store when called.
type LocalValue struct {
	name  string
	store engine.LocalStore
}

// Name returns the entry name.
func (v *LocalValue) Name() string {
	return v.name
}

// Get reads the current value.
func (v *LocalValue) Get(ctx context.Context) (any, bool, error) {
	if v.store == nil {
		return nil, false, ErrNoStore
	}
	value, ok, err := v.store.ReadValue(ctx, v.name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read local value %s: %w", v.name, err)
	}
	return value, ok, nil
}

// Set writes value.
func (v *LocalValue) Set(ctx context.Context, value any) error {
	if v.store == nil {
		return ErrNoStore
	}
	if err := v.store.WriteValue(ctx, v.name, value); err != nil {
		return fmt.Errorf("failed to write local value %s: %w", v.name, err)
	}
	return nil
}

// String returns the local: URI the handle was made from.
func (v *LocalValue) String() string {
	return "local:" + v.name
}
