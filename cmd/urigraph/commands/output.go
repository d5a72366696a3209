package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/urigraph/pkg/keypath"
	"github.com/openfroyo/urigraph/pkg/message"
	"github.com/openfroyo/urigraph/pkg/schemes"
)

// materialize reads through local value handles so they print as the
// stored value. Unset values print as null.
func materialize(ctx context.Context, v any) (any, error) {
	lv, ok := v.(*schemes.LocalValue)
	if !ok {
		return v, nil
	}
	value, _, err := lv.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", lv, err)
	}
	return value, nil
}

// printValue writes v to w in the requested format.
func printValue(w io.Writer, format string, v any) error {
	v = presentable(v)

	switch format {
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "text":
		s, ok := keypath.AsString(v)
		if !ok {
			s = "<nil>"
		}
		_, err := fmt.Fprintln(w, s)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// presentable replaces values that have no useful encoded form.
func presentable(v any) any {
	switch val := v.(type) {
	case *message.Message:
		return map[string]any{
			"name":   val.Name(),
			"target": val.Target(),
			"params": val.Params(),
		}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = presentable(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = presentable(item)
		}
		return out
	default:
		return v
	}
}
