package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

func newResolveCommand(flags *globalFlags) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "resolve <uri>...",
		Short: "Dereference compound URIs",
		Long: `Dereference one or more compound URIs and print the results.

Nested parameter URIs are dereferenced first. Templates for make: come from
the documents given with --documents or the settings file.`,
		Example: `  # Build a template with an overridden parameter
  urigraph resolve -d screens.yaml 'make:Button+title=Home'

  # Read a node from another document
  urigraph resolve 'file:conf/db.yaml#primary'

  # Show how a URI parses without dereferencing it
  urigraph resolve --explain 'post:navigate#main/content+screen=(make:Home+title=Start)'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if explain {
				for _, raw := range args {
					u, err := curi.Parse(raw)
					if err != nil {
						return err
					}
					if err := printValue(cmd.OutOrStdout(), flags.output, describeURI(u)); err != nil {
						return err
					}
				}
				return nil
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, flags, nil)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			op := rt.operation(ctx, "resolve", attribute.Int("uri.count", len(args)))
			err = resolveAll(op, rt, args, cmd.OutOrStdout(), flags.output)
			op.End(err)
			if err == nil {
				op.Logger.Debugf("resolved %d uris in %s", len(args), op.Timer.Duration())
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "print the parsed structure instead of dereferencing")

	return cmd
}

func resolveAll(op *telemetry.InstrumentedContext, rt *runtime, args []string, w io.Writer, format string) error {
	for _, raw := range args {
		op.Logger.WithURI(raw).Debug("resolving")
		value, err := rt.handler.Dereference(op.Ctx, raw)
		if err != nil {
			return err
		}
		if value, err = materialize(op.Ctx, value); err != nil {
			return err
		}
		if err := printValue(w, format, value); err != nil {
			return err
		}
	}
	return nil
}

// describeURI renders the parse tree of u.
func describeURI(u *curi.URI) map[string]any {
	out := map[string]any{
		"scheme":    u.Scheme(),
		"name":      u.Name(),
		"canonical": u.String(),
	}
	if fragment, ok := u.Fragment(); ok {
		out["fragment"] = fragment
	}
	if params := u.Params(); len(params) > 0 {
		list := make([]any, len(params))
		for i, p := range params {
			entry := map[string]any{"name": p.Name, "value": describeValue(p.Value)}
			if p.Positional {
				entry["positional"] = true
			}
			list[i] = entry
		}
		out["params"] = list
	}
	if value, ok := u.Context(); ok {
		out["context"] = describeValue(value)
	}
	return out
}

func describeValue(v any) any {
	if nested, ok := v.(*curi.URI); ok {
		return describeURI(nested)
	}
	return fmt.Sprint(v)
}
