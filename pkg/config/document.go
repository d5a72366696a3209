package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/openfroyo/urigraph/pkg/keypath"
)

// MakesKey is the top-level key holding the make templates table.
const MakesKey = "makes"

// Format is a document source format.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatCUE      Format = "cue"
	FormatStarlark Format = "starlark"
)

// Document is a loaded configuration tree. Root holds maps with string
// keys, []any sequences and scalars (string, int, float64, bool, nil).
type Document struct {
	// Source is the file path or name the document was loaded from.
	Source string

	// Format is the source format.
	Format Format

	// Root is the decoded tree.
	Root map[string]any

	// LoadedAt is when the document was loaded.
	LoadedAt time.Time
}

// NewDocument wraps an already decoded tree.
func NewDocument(source string, format Format, root map[string]any) *Document {
	if root == nil {
		root = make(map[string]any)
	}
	return &Document{
		Source:   source,
		Format:   format,
		Root:     normalizeMap(root),
		LoadedAt: time.Now(),
	}
}

// Makes returns the make templates table, or nil when the document has
// none.
func (d *Document) Makes() map[string]any {
	makes, _ := d.Root[MakesKey].(map[string]any)
	return makes
}

// MakeNames returns the template names in sorted order.
func (d *Document) MakeNames() []string {
	makes := d.Makes()
	names := make([]string, 0, len(makes))
	for name := range makes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns the make template called name.
func (d *Document) Template(name string) (any, bool) {
	t, ok := d.Makes()[name]
	return t, ok
}

// Lookup resolves a dotted key path against the document root.
func (d *Document) Lookup(path string) (any, bool) {
	return keypath.Resolve(path, d.Root)
}

// String returns a short description for logs.
func (d *Document) String() string {
	return fmt.Sprintf("%s (%s, %d makes)", d.Source, d.Format, len(d.Makes()))
}

// normalize rewrites decoded values into the shapes Document promises.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case int64:
		if int64(int(val)) == val {
			return int(val)
		}
		return val
	case uint64:
		if val <= uint64(^uint(0)>>1) {
			return int(val)
		}
		return val
	case float32:
		return float64(val)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}
