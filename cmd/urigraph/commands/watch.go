package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/schemes"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var (
		metricsListen string
		debounce      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <document> [uri...]",
		Short: "Follow a document and re-resolve URIs when it changes",
		Long: `Load a document as the make templates table and reload it whenever the
file changes. After every successful reload each given URI is dereferenced
again and printed. A reload that fails keeps the previous document.`,
		Example: `  urigraph watch screens.yaml 'make:Home' 'make:Button+title=OK'
  urigraph watch --metrics-listen :9090 screens.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, uris := args[0], args[1:]

			reloads := make(chan *config.Document, 1)
			watchTemplates := func(ctx context.Context, rt *runtime) (schemes.TemplateSource, *curi.URI, error) {
				w, err := config.NewWatcher(ctx, rt.loader, path,
					config.WithDebounce(debounce),
					config.WithWatcherMetrics(rt.telemetry.Metrics),
					config.WithReloadHook(func(doc *config.Document, err error) {
						if err != nil {
							log.Warn().Err(err).Str("document", path).Msg("Reload failed, keeping previous document")
							return
						}
						select {
						case reloads <- doc:
						default:
						}
					}),
				)
				if err != nil {
					return nil, nil, err
				}
				if err := w.Start(ctx); err != nil {
					return nil, nil, err
				}
				abs, err := filepath.Abs(path)
				if err != nil {
					return nil, nil, err
				}
				return w, schemes.FileURI(abs), nil
			}

			rt, err := newRuntime(ctx, flags, watchTemplates)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			if metricsListen != "" {
				server := rt.telemetry.Metrics.StartMetricsServer(metricsListen, rt.telemetry.Logger)
				if server == nil {
					log.Warn().Msg("Metrics are disabled in settings, not serving them")
				} else {
					defer server.Shutdown(context.WithoutCancel(ctx))
					log.Info().Str("addr", server.Addr).Msg("Serving metrics")
				}
			}

			resolveAll := func() {
				for _, raw := range uris {
					value, err := rt.handler.Dereference(ctx, raw)
					if err == nil {
						value, err = materialize(ctx, value)
					}
					if err != nil {
						log.Error().Err(err).Str("uri", raw).Msg("Resolve failed")
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", raw)
					if err := printValue(cmd.OutOrStdout(), flags.output, value); err != nil {
						log.Error().Err(err).Str("uri", raw).Msg("Print failed")
					}
				}
			}

			resolveAll()
			log.Info().Str("document", path).Msg("Watching for changes")

			for {
				select {
				case <-ctx.Done():
					return nil
				case doc := <-reloads:
					log.Info().Str("document", doc.String()).Msg("Document reloaded")
					resolveAll()
				}
			}
		},
	}

	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address to serve Prometheus metrics on")
	cmd.Flags().DurationVar(&debounce, "debounce", config.DefaultDebounce, "quiet period before reloading")

	return cmd
}
