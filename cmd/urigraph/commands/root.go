package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	settingsPath string
	documents    []string
	storeDriver  string
	storePath    string
	policies     []string
	output       string
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "urigraph",
		Short: "Resolve compound URIs against configuration documents",
		Long: `urigraph dereferences compound URIs such as

  make:Button+title=Home+icon=(repr:x+value=local:theme.icon)

through a handler of pluggable schemes:

  local   named values in the local store
  make    templates from the makes table of the loaded documents
  post    messages addressed along a target path
  repr    type conversions
  file    nodes selected from other configuration documents

Documents may be YAML, JSON, CUE or Starlark.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.settingsPath, "config", "c", "", "settings file path")
	pf.StringSliceVarP(&flags.documents, "documents", "d", nil, "configuration documents providing make templates")
	pf.StringVar(&flags.storeDriver, "store-driver", "", "local store driver (sqlite or memory)")
	pf.StringVar(&flags.storePath, "store", "", "SQLite database for local values")
	pf.StringSliceVar(&flags.policies, "allow-policy", nil, "Rego policy files or directories guarding schemes")
	pf.StringVarP(&flags.output, "output", "o", "json", "output format (json, yaml or text)")

	rootCmd.AddCommand(newResolveCommand(flags))
	rootCmd.AddCommand(newRenderCommand(flags))
	rootCmd.AddCommand(newKeypathCommand(flags))
	rootCmd.AddCommand(newLocalCommand(flags))
	rootCmd.AddCommand(newCheckCommand(flags))
	rootCmd.AddCommand(newWatchCommand(flags))
	rootCmd.AddCommand(newPolicyCommand(flags))

	return rootCmd
}
