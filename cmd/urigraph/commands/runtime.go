package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/urigraph/pkg/builder"
	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
	"github.com/openfroyo/urigraph/pkg/policy"
	"github.com/openfroyo/urigraph/pkg/schemes"
	"github.com/openfroyo/urigraph/pkg/stores"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// runtime is the handler and its collaborators, assembled from settings
// and flags.
type runtime struct {
	settings  *config.Settings
	telemetry *telemetry.Telemetry
	loader    *config.Loader
	store     stores.Store
	policies  *policy.Engine
	templates schemes.TemplateSource
	handler   *engine.Handler
}

// loadSettings reads the settings file and applies flag overrides.
func loadSettings(flags *globalFlags) (*config.Settings, error) {
	s, err := config.LoadSettings(flags.settingsPath)
	if err != nil {
		return nil, err
	}

	if len(flags.documents) > 0 {
		s.Resolver.Documents = flags.documents
	}
	if flags.storeDriver != "" {
		s.Store.Driver = flags.storeDriver
	}
	if flags.storePath != "" {
		s.Store.Path = flags.storePath
		if flags.storeDriver == "" {
			s.Store.Driver = "sqlite"
		}
	}
	if len(flags.policies) > 0 {
		s.Policy.Paths = append(s.Policy.Paths, flags.policies...)
		if len(s.Policy.Schemes) == 0 {
			s.Policy.Schemes = []string{schemes.SchemeFile, schemes.SchemeLocal, schemes.SchemeMake, schemes.SchemePost, schemes.SchemeRepr}
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// templatesFunc supplies the make templates once settings, the loader and
// telemetry are ready.
type templatesFunc func(ctx context.Context, rt *runtime) (schemes.TemplateSource, *curi.URI, error)

// newRuntime wires the handler. When templates is nil the make templates
// come from the configured documents.
func newRuntime(ctx context.Context, flags *globalFlags, templates templatesFunc) (*runtime, error) {
	settings, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&settings.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	rt := &runtime{
		settings:  settings,
		telemetry: tel,
		loader:    config.NewLoader(tel.Logger.Zerolog()),
	}

	if templates == nil {
		templates = documentTemplates
	}
	source, origin, err := templates(ctx, rt)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.templates = source

	rt.store, err = stores.Open(ctx, settings.Store, tel.Metrics)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	b := builder.New(
		builder.WithLogger(tel.Logger),
		builder.WithMetrics(tel.Metrics),
		builder.WithTracer(tel.Tracer),
	)

	rt.handler = schemes.Defaults(schemes.Deps{
		Store:           rt.store,
		Templates:       source,
		TemplatesOrigin: origin,
		Builder:         b,
		Loader:          rt.loader,
		FileRoot:        settings.Resolver.FileRoot,
		PostDelimiter:   settings.Resolver.PostDelimiter,
	},
		engine.WithLogger(tel.Logger),
		engine.WithMetrics(tel.Metrics),
		engine.WithTracer(tel.Tracer),
		engine.WithMaxDepth(settings.Resolver.MaxDepth),
	)

	if len(settings.Policy.Paths) > 0 {
		rt.policies, err = policy.NewEngine(ctx, tel.Logger.Zerolog(), policy.WithQuery(settings.Policy.Query))
		if err != nil {
			rt.Close(ctx)
			return nil, err
		}
		if err := rt.policies.LoadPolicies(ctx, settings.Policy.Paths); err != nil {
			rt.Close(ctx)
			return nil, err
		}
		rt.handler = policy.Install(rt.handler, rt.policies, settings.Policy.Schemes, tel.Metrics)
	}

	return rt, nil
}

// documentTemplates merges the makes tables of every configured document.
// Later documents override earlier ones. With exactly one document its
// file URI becomes the reference for relative file: names in templates.
func documentTemplates(ctx context.Context, rt *runtime) (schemes.TemplateSource, *curi.URI, error) {
	templates := make(schemes.Templates)
	paths := rt.settings.Resolver.Documents

	var errs *multierror.Error
	for _, path := range paths {
		doc, err := rt.loader.Load(ctx, path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for name, tmpl := range doc.Makes() {
			templates[name] = tmpl
		}
		log.Debug().Str("document", doc.String()).Msg("Loaded document")
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}

	var origin *curi.URI
	if len(paths) == 1 {
		abs, err := filepath.Abs(paths[0])
		if err != nil {
			return nil, nil, err
		}
		origin = schemes.FileURI(abs)
	}
	return templates, origin, nil
}

// operation starts a traced, timed command operation. The returned context
// carries the runtime's telemetry and the operation's logger.
func (rt *runtime) operation(ctx context.Context, name string, attrs ...attribute.KeyValue) *telemetry.InstrumentedContext {
	return telemetry.StartOperation(rt.telemetry.WithContext(ctx), name, attrs...)
}

// Close releases the store and flushes telemetry.
func (rt *runtime) Close(ctx context.Context) {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close local store")
		}
	}
	if err := rt.telemetry.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}
