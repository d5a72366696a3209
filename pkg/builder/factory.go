package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Factory constructs an object of one class from built properties.
type Factory interface {
	New(ctx context.Context, props map[string]any) (any, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, props map[string]any) (any, error)

// New calls f.
func (f FactoryFunc) New(ctx context.Context, props map[string]any) (any, error) {
	return f(ctx, props)
}

// PropsTag is the struct tag StructFactory decodes properties by.
const PropsTag = "prop"

// StructFactory decodes properties into a *T and validates it. Fields are
// matched by their `prop` tag, then case-insensitively by name. String
// properties are converted to the field type, since URI parameters are
// always text.
type StructFactory[T any] struct {
	validate *validator.Validate
}

// NewStructFactory creates a factory for T.
func NewStructFactory[T any]() *StructFactory[T] {
	return &StructFactory[T]{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// New implements Factory.
func (f *StructFactory[T]) New(_ context.Context, props map[string]any) (any, error) {
	out := new(T)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          PropsTag,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(props); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", *out, err)
	}

	if err := f.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// T is not a struct; nothing to validate.
			return out, nil
		}
		return nil, fmt.Errorf("invalid %T: %w", *out, err)
	}
	return out, nil
}
