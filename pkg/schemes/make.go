package schemes

import (
	"context"
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
)

// TemplateSource looks up make templates by name. *config.Document and
// *config.Watcher implement it.
type TemplateSource interface {
	Template(name string) (any, bool)
}

// Templates is a static TemplateSource.
type Templates map[string]any

// Template implements TemplateSource.
func (t Templates) Template(name string) (any, bool) {
	v, ok := t[name]
	return v, ok
}

// Make dereferences make:name by copying the named template, overlaying the
// URI's parameters and handing the result to Builder. A name missing from
// the templates table yields nil without error.
type Make struct {
	Templates TemplateSource
	Builder   engine.ObjectBuilder

	// Origin, when set, is where the templates were loaded from. Builds
	// run with it as the reference URI for its scheme, so relative
	// references inside templates resolve against the template file.
	Origin *curi.URI
}

// Dereference implements engine.Scheme.
func (m *Make) Dereference(ctx context.Context, req *engine.Request) (any, error) {
	name := req.URI.Name()
	logger := req.Handler.Logger().WithField("template", name)

	if m.Templates == nil {
		logger.Debug("no templates configured")
		return nil, nil
	}
	tmpl, ok := m.Templates.Template(name)
	if !ok {
		logger.Debug("template not found")
		return nil, nil
	}

	node, err := Overlay(tmpl, req.Params)
	if err != nil {
		return nil, engine.NewConstructionError(fmt.Sprintf("template %q", name), err)
	}

	if m.Builder == nil {
		return node, nil
	}

	h := req.Handler
	if m.Origin != nil {
		h = h.ModifySchemeContext(m.Origin)
	}

	value, err := m.Builder.Build(ctx, h, node, name, true)
	if err != nil {
		if engine.KindOf(err) != "" {
			return nil, err
		}
		return nil, engine.NewConstructionError(fmt.Sprintf("building %q", name), err)
	}
	return value, nil
}

// Overlay returns a deep copy of tmpl with params set on it. The template
// itself is never modified. Parameters require a mapping template.
func Overlay(tmpl any, params curi.Params) (any, error) {
	if tmpl == nil {
		if params.Len() == 0 {
			return nil, nil
		}
		tmpl = map[string]any{}
	}
	node, err := copystructure.Copy(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to copy template: %w", err)
	}
	if params.Len() == 0 {
		return node, nil
	}

	m, ok := node.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot overlay parameters on %T", tmpl)
	}
	for _, p := range params {
		m[p.Name] = p.Value
	}
	return m, nil
}
