package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openfroyo/urigraph/pkg/engine"
)

// ErrNotFound is returned by DeleteValue for names with no stored value.
var ErrNotFound = errors.New("local value not found")

// Store is a local value backend.
type Store interface {
	engine.LocalStore

	// DeleteValue removes the value stored under name.
	DeleteValue(ctx context.Context, name string) error

	// ListValues returns every stored value whose name starts with prefix,
	// ordered by name.
	ListValues(ctx context.Context, prefix string) ([]*Entry, error)

	// Close releases the backend.
	Close() error
}

// Entry is a stored local value.
type Entry struct {
	Name      string    `json:"name"`
	Value     any       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store operation labels for metrics.
const (
	opRead   = "read"
	opWrite  = "write"
	opDelete = "delete"
	opList   = "list"
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// encodeValue serializes a value for storage.
func encodeValue(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("value is not serializable: %w", err)
	}
	return string(data), nil
}

// decodeValue is the inverse of encodeValue. Integral numbers decode as
// int, other numbers as float64.
func decodeValue(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("stored value is corrupt: %w", err)
	}
	return numbers(v), nil
}

func numbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = numbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = numbers(item)
		}
		return val
	default:
		return v
	}
}
