package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/urigraph/pkg/graph"
	"github.com/openfroyo/urigraph/pkg/schemes"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

func newCheckCommand(flags *globalFlags) *cobra.Command {
	var (
		parallel int
		dot      bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every make template builds",
		Long: `Check the make templates of the configured documents.

Templates are first scanned for references to each other; a reference loop
is reported without dereferencing anything. Every template is then built,
templates that only reference already built templates in parallel.`,
		Example: `  urigraph check -d screens.yaml
  urigraph check -d screens.yaml --dot | dot -Tsvg > templates.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, flags, nil)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			op := rt.operation(ctx, "check")
			err = runCheck(op, rt, cmd.OutOrStdout(), parallel, dot)
			op.End(err)
			return err
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "maximum templates built at once")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the reference graph in Graphviz DOT format instead")

	return cmd
}

// runCheck scans the templates for references and builds them level by
// level, printing one row per template.
func runCheck(op *telemetry.InstrumentedContext, rt *runtime, w io.Writer, parallel int, dot bool) error {
	templates, ok := rt.templates.(schemes.Templates)
	if !ok {
		return fmt.Errorf("templates are not a static table")
	}

	g, err := graph.Build(templates, rt.handler.IsURI)
	if err != nil {
		return err
	}
	for _, m := range g.Missing {
		op.Logger.WithFields(map[string]interface{}{"template": m.From, "path": m.Path}).WithURI(m.URI).Warn("reference to a missing template")
	}
	if dot {
		_, err := fmt.Fprint(w, g.ToDOT())
		return err
	}

	results, checkErr := graph.NewChecker(rt.handler,
		graph.WithParallelism(parallel),
		graph.WithLogger(op.Logger.Zerolog()),
	).Check(op.Ctx, g)
	if results == nil {
		return checkErr
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tLEVEL\tSTATUS\tDURATION")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Name, r.Level, status, r.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return checkErr
}
