package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKeypathCommand(flags *globalFlags) *cobra.Command {
	var documentPath string

	cmd := &cobra.Command{
		Use:   "keypath <path>",
		Short: "Look up a dotted key path in a document",
		Example: `  urigraph keypath --document site.yaml servers.0.host
  urigraph keypath --document build.star -o yaml makes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd.Context(), documentPath)
			if err != nil {
				return err
			}

			value, ok := doc.Lookup(args[0])
			if !ok {
				return fmt.Errorf("key path %q not found in %s", args[0], documentPath)
			}
			return printValue(cmd.OutOrStdout(), flags.output, value)
		},
	}

	cmd.Flags().StringVar(&documentPath, "document", "", "document to search")
	_ = cmd.MarkFlagRequired("document")

	return cmd
}
