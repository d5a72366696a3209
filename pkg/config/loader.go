package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader loads documents from YAML, JSON, CUE and Starlark sources and
// validates them against the built-in document schema.
type Loader struct {
	logger   zerolog.Logger
	cue      *cueDecoder
	starlark *StarlarkEvaluator
	schemas  *SchemaRegistry
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStarlarkTimeout bounds Starlark document scripts.
func WithStarlarkTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.starlark = NewStarlarkEvaluator(d)
	}
}

// WithSchemaRegistry replaces the schema registry.
func WithSchemaRegistry(sr *SchemaRegistry) LoaderOption {
	return func(l *Loader) {
		l.schemas = sr
	}
}

// NewLoader creates a new document loader.
func NewLoader(logger zerolog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:   logger.With().Str("component", "document-loader").Logger(),
		cue:      newCUEDecoder(),
		starlark: NewStarlarkEvaluator(DefaultStarlarkTimeout),
		schemas:  NewSchemaRegistry(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Schemas returns the loader's schema registry.
func (l *Loader) Schemas() *SchemaRegistry {
	return l.schemas
}

// FormatOf maps a file name to its format by extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	case ".star", ".starlark":
		return FormatStarlark, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Load reads and decodes the document at path.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return l.LoadBytes(ctx, path, data)
}

// LoadBytes decodes data, choosing the format from name's extension.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) (*Document, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	var root map[string]any
	switch format {
	case FormatYAML, FormatJSON:
		root, err = decodeYAML(data)
	case FormatCUE:
		root, err = l.cue.decode(name, data)
	case FormatStarlark:
		root, err = l.starlark.Evaluate(ctx, name, string(data), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	doc := NewDocument(name, format, root)
	if err := l.schemas.Validate(ctx, DocumentSchema, doc.Root); err != nil {
		return nil, fmt.Errorf("document %s is invalid: %w", name, err)
	}

	l.logger.Debug().
		Str("source", name).
		Str("format", string(format)).
		Int("makes", len(doc.Makes())).
		Msg("Document loaded")

	return doc, nil
}

// decodeYAML decodes a YAML or JSON mapping. An empty input is an empty
// document.
func decodeYAML(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return root, nil
}
