package stores

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// MemoryStore is an in-process Store. Values are deep-copied on the way in
// and out, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	metrics *telemetry.Metrics
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. metrics may be nil.
func NewMemoryStore(metrics *telemetry.Metrics) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		metrics: metrics,
	}
}

// ReadValue implements engine.LocalStore.
func (s *MemoryStore) ReadValue(_ context.Context, name string) (any, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		s.metrics.RecordStoreOperation(opRead, "ok")
		return nil, false, nil
	}

	value, err := clone(entry.Value)
	s.metrics.RecordStoreOperation(opRead, status(err))
	if err != nil {
		return nil, false, fmt.Errorf("failed to copy local value %s: %w", name, err)
	}
	return value, true, nil
}

// WriteValue implements engine.LocalStore.
func (s *MemoryStore) WriteValue(_ context.Context, name string, value any) error {
	copied, err := clone(value)
	s.metrics.RecordStoreOperation(opWrite, status(err))
	if err != nil {
		return fmt.Errorf("failed to copy local value %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if entry, ok := s.entries[name]; ok {
		entry.Value = copied
		entry.UpdatedAt = now
		return nil
	}
	s.entries[name] = &Entry{Name: name, Value: copied, CreatedAt: now, UpdatedAt: now}
	return nil
}

// DeleteValue removes a stored value.
func (s *MemoryStore) DeleteValue(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; !ok {
		s.metrics.RecordStoreOperation(opDelete, "error")
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.entries, name)
	s.metrics.RecordStoreOperation(opDelete, "ok")
	return nil
}

// ListValues returns stored values whose names start with prefix.
func (s *MemoryStore) ListValues(_ context.Context, prefix string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []*Entry{}
	for name, entry := range s.entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		value, err := clone(entry.Value)
		if err != nil {
			s.metrics.RecordStoreOperation(opList, "error")
			return nil, fmt.Errorf("failed to copy local value %s: %w", name, err)
		}
		copied := *entry
		copied.Value = value
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	s.metrics.RecordStoreOperation(opList, "ok")
	return entries, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func clone(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}
