package schemes

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
)

// File dereferences file:path#keypath by loading a document and selecting
// the fragment's key path from it. Relative paths resolve against the
// directory of the handler's reference URI for the scheme, or against Root
// when no reference is recorded.
//
// With a Builder, the selected node is built with the loaded file as the
// reference URI, so relative references inside it resolve next to it.
type File struct {
	Loader  *config.Loader
	Builder engine.ObjectBuilder
	Root    string
}

// ResolveRelative implements engine.RelativeScheme.
func (f *File) ResolveRelative(ref, target *curi.URI) (*curi.URI, error) {
	name := target.Name()
	if name == "" {
		return target.WithName(ref.Name()), nil
	}
	if filepath.IsAbs(name) {
		return target, nil
	}
	return target.WithName(filepath.Join(filepath.Dir(ref.Name()), name)), nil
}

// Dereference implements engine.Scheme.
func (f *File) Dereference(ctx context.Context, req *engine.Request) (any, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("no document loader configured")
	}

	u := req.URI
	if _, ok := req.Handler.ReferenceURI(SchemeFile); !ok {
		if name := u.Name(); !filepath.IsAbs(name) && f.Root != "" {
			u = u.WithName(filepath.Join(f.Root, name))
		}
	}

	doc, err := f.Loader.Load(ctx, u.Name())
	if err != nil {
		return nil, err
	}

	var node any = doc.Root
	if fragment, ok := u.Fragment(); ok && fragment != "" {
		if node, ok = doc.Lookup(fragment); !ok {
			req.Handler.Logger().WithURI(u.Raw()).Debug("key path not found in document")
			return nil, nil
		}
	}

	if node, err = Overlay(node, req.Params); err != nil {
		return nil, engine.NewConstructionError(fmt.Sprintf("document %s", u.Name()), err)
	}

	if f.Builder == nil {
		return node, nil
	}

	h := req.Handler.ModifySchemeContext(u)
	value, err := f.Builder.Build(ctx, h, node, u.Raw(), true)
	if err != nil {
		if engine.KindOf(err) != "" {
			return nil, err
		}
		return nil, engine.NewConstructionError(fmt.Sprintf("building %s", u.Raw()), err)
	}
	return value, nil
}
