package config

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/urigraph/pkg/curi"
)

// DefaultStarlarkTimeout bounds a document script's execution.
const DefaultStarlarkTimeout = 10 * time.Second

// StarlarkEvaluator executes Starlark document scripts. The script's
// public globals become the document tree.
type StarlarkEvaluator struct {
	timeout time.Duration
}

// NewStarlarkEvaluator creates a new Starlark evaluator.
func NewStarlarkEvaluator(timeout time.Duration) *StarlarkEvaluator {
	if timeout <= 0 {
		timeout = DefaultStarlarkTimeout
	}
	return &StarlarkEvaluator{
		timeout: timeout,
	}
}

// Evaluate executes script with input predeclared and returns its public
// globals. Globals starting with "_" and function values are skipped.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, filename, script string, input map[string]any) (map[string]any, error) {
	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name:  filename,
		Print: func(_ *starlark.Thread, _ string) {},
	}

	type result struct {
		out map[string]any
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := se.evaluateSync(thread, filename, script, input)
		done <- result{out: out, err: err}
	}()

	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		return nil, fmt.Errorf("starlark %s: execution timeout after %v", filename, se.timeout)
	case r := <-done:
		return r.out, r.err
	}
}

func (se *StarlarkEvaluator) evaluateSync(thread *starlark.Thread, filename, script string, input map[string]any) (map[string]any, error) {
	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"uri":    starlark.NewBuiltin("uri", builtinURI),
	}

	for key, val := range input {
		sv, err := toStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = sv
	}

	globals, err := starlark.ExecFile(thread, filename, script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	output := make(map[string]any, len(globals))
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		switch val.(type) {
		case *starlark.Function, *starlark.Builtin:
			continue
		}
		goVal, err := fromStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert global %s: %w", name, err)
		}
		output[name] = goVal
	}

	return output, nil
}

// builtinURI implements uri(scheme, name, **params), returning the
// canonical compound URI text. Parameters are emitted in sorted order.
func builtinURI(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var scheme, name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 2, &scheme, &name); err != nil {
		return nil, err
	}

	params := make(curi.Params, 0, len(kwargs))
	for _, kv := range kwargs {
		key, _ := starlark.AsString(kv[0])
		value, err := fromStarlark(kv[1])
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", b.Name(), key, err)
		}
		if s, ok := value.(string); ok && curi.LooksLikeURI(s) {
			nested, err := curi.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %s: %w", b.Name(), key, err)
			}
			value = nested
		}
		params = append(params, curi.Param{Name: key, Value: value})
	}
	sort.SliceStable(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	return starlark.String(curi.New(scheme, name, params).String()), nil
}

// toStarlark converts a Go value to a Starlark value.
func toStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlark converts a Starlark value to a Go value.
func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return int(i), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Indexable:
		list := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			value, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlark(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
