package schemes

import (
	"path/filepath"

	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
)

// Built-in scheme names.
const (
	SchemeLocal = "local"
	SchemeMake  = "make"
	SchemePost  = "post"
	SchemeRepr  = "repr"
	SchemeFile  = "file"
)

// Deps are the collaborators the built-in schemes are wired to.
type Deps struct {
	// Store backs local:. A nil store still yields handles whose reads
	// and writes fail with ErrNoStore.
	Store engine.LocalStore

	// Templates is the make: templates table.
	Templates TemplateSource

	// TemplatesOrigin is where Templates was loaded from, if anywhere.
	TemplatesOrigin *curi.URI

	// Builder builds make: and file: nodes. Without one the overlaid
	// configuration itself is returned.
	Builder engine.ObjectBuilder

	// Converter backs repr:. Defaults to DefaultConverter.
	Converter engine.TypeConverter

	// Loader enables file:. Without one the scheme is not registered.
	Loader *config.Loader

	// FileRoot anchors relative file: names when no reference URI is set.
	FileRoot string

	// PostDelimiter splits post: fragments. Defaults to "/".
	PostDelimiter string
}

// Register installs the built-in schemes on h in place.
func Register(h *engine.Handler, deps Deps) {
	converter := deps.Converter
	if converter == nil {
		converter = DefaultConverter{}
	}

	h.Register(SchemeLocal, &Local{Store: deps.Store})
	h.Register(SchemeMake, &Make{
		Templates: deps.Templates,
		Builder:   deps.Builder,
		Origin:    fileOrigin(deps.TemplatesOrigin),
	})
	h.Register(SchemePost, &Post{Delimiter: deps.PostDelimiter})
	h.Register(SchemeRepr, &Repr{Converter: converter})
	if deps.Loader != nil {
		h.Register(SchemeFile, &File{
			Loader:  deps.Loader,
			Builder: deps.Builder,
			Root:    deps.FileRoot,
		})
	}
}

// fileOrigin anchors a relative file: origin to the working directory, the
// same directory the templates were loaded from. Root is not applied since
// the origin already names a loaded file.
func fileOrigin(origin *curi.URI) *curi.URI {
	if origin == nil || origin.Scheme() != SchemeFile || filepath.IsAbs(origin.Name()) {
		return origin
	}
	abs, err := filepath.Abs(origin.Name())
	if err != nil {
		return origin
	}
	return origin.WithName(abs)
}

// Defaults returns a handler with every built-in scheme registered.
func Defaults(deps Deps, opts ...engine.Option) *engine.Handler {
	h := engine.NewHandler(opts...)
	Register(h, deps)
	return h
}

// FileURI returns the file: URI for path, used as a reference URI.
func FileURI(path string) *curi.URI {
	return curi.New(SchemeFile, path, nil)
}
