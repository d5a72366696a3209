package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// Settings is the process configuration for the resolver and its
// collaborators.
type Settings struct {
	Resolver  ResolverSettings `yaml:"resolver"`
	Store     StoreSettings    `yaml:"store"`
	Policy    PolicySettings   `yaml:"policy"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ResolverSettings configures the URI handler and built-in schemes.
type ResolverSettings struct {
	// MaxDepth bounds nested resolution.
	MaxDepth int `yaml:"max_depth" validate:"gte=1,lte=4096"`

	// PostDelimiter separates target segments in post: fragments.
	PostDelimiter string `yaml:"post_delimiter" validate:"required,max=4"`

	// Documents are loaded and merged into the make templates table.
	Documents []string `yaml:"documents" validate:"dive,required"`

	// FileRoot anchors relative file: names when no reference URI is set.
	FileRoot string `yaml:"file_root"`
}

// StoreSettings selects the local value store.
type StoreSettings struct {
	// Driver is sqlite or memory.
	Driver string `yaml:"driver" validate:"required,oneof=sqlite memory"`

	// Path is the SQLite database path.
	Path string `yaml:"path" validate:"required_if=Driver sqlite"`
}

// PolicySettings configures scheme guards.
type PolicySettings struct {
	// Paths are .rego files or directories.
	Paths []string `yaml:"paths" validate:"dive,required"`

	// Schemes lists the schemes wrapped by the guard.
	Schemes []string `yaml:"schemes" validate:"dive,required"`

	// Query is the Rego decision, data.urigraph.allow by default.
	Query string `yaml:"query"`
}

// DefaultSettings returns settings that work without a file.
func DefaultSettings() *Settings {
	return &Settings{
		Resolver: ResolverSettings{
			MaxDepth:      64,
			PostDelimiter: "/",
		},
		Store: StoreSettings{
			Driver: "memory",
		},
		Policy: PolicySettings{
			Query: "data.urigraph.allow",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// LoadSettings reads a YAML settings file over the defaults and validates
// the result.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, s.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all problems at once.
func (s *Settings) Validate() error {
	var result *multierror.Error

	if err := settingsValidator.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result = multierror.Append(result, &ValidationError{
					Path:    fe.Namespace(),
					Message: fmt.Sprintf("failed on %q", fe.Tag()),
				})
			}
		} else {
			result = multierror.Append(result, err)
		}
	}

	if err := s.Telemetry.Validate(); err != nil {
		result = multierror.Append(result, &ValidationError{Path: "Settings.Telemetry", Message: err.Error()})
	}

	return result.ErrorOrNil()
}
