package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/template"
)

func newRenderCommand(_ *globalFlags) *cobra.Command {
	var (
		contextPath string
		encode      bool
		references  bool
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a string template against a document",
		Long: `Render a string template. Each {key.path} block is replaced by the
value at that key path in the context document. Blocks that do not resolve
render as the empty string.`,
		Example: `  # Render against a YAML document
  urigraph render --context site.yaml 'https://{host}:{port}/{paths.api}'

  # Percent-encode substituted values
  urigraph render --context site.yaml --encode 'q={search.term}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := template.Parse(args[0])

			if references {
				for _, ref := range tmpl.References() {
					fmt.Fprintln(cmd.OutOrStdout(), ref)
				}
				return nil
			}

			var scope any
			if contextPath != "" {
				doc, err := loadDocument(cmd.Context(), contextPath)
				if err != nil {
					return err
				}
				scope = doc.Root
			}

			fmt.Fprintln(cmd.OutOrStdout(), tmpl.Render(scope, encode))
			return nil
		},
	}

	cmd.Flags().StringVar(&contextPath, "context", "", "document supplying template values")
	cmd.Flags().BoolVar(&encode, "encode", false, "percent-encode substituted values")
	cmd.Flags().BoolVar(&references, "references", false, "list the key paths the template references")

	return cmd
}

func loadDocument(ctx context.Context, path string) (*config.Document, error) {
	doc, err := config.NewLoader(log.Logger).Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return doc, nil
}
