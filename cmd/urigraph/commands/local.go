package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/urigraph/pkg/stores"
)

func newLocalCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Manage values behind the local: scheme",
		Long: `Read and write the named values that local: URIs dereference to.

Values are stored as JSON. Without --store or a settings file the store is
in memory and does not outlive the command.`,
	}

	cmd.AddCommand(newLocalGetCommand(flags))
	cmd.AddCommand(newLocalSetCommand(flags))
	cmd.AddCommand(newLocalListCommand(flags))
	cmd.AddCommand(newLocalDeleteCommand(flags))

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, flags *globalFlags, fn func(stores.Store) error) error {
	settings, err := loadSettings(flags)
	if err != nil {
		return err
	}
	store, err := stores.Open(ctx, settings.Store, nil)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newLocalGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a local value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(store stores.Store) error {
				value, ok, err := store.ReadValue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("local value %q is not set", args[0])
				}
				return printValue(cmd.OutOrStdout(), flags.output, value)
			})
		},
	}
}

func newLocalSetCommand(flags *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a local value",
		Long: `Store a local value. The value is read as YAML, so numbers, booleans,
lists and maps keep their type. Use --string to store the text as is.`,
		Example: `  urigraph local set --store app.db theme.icon home.png
  urigraph local set --store app.db db.port 5432
  urigraph local set --store app.db db.replicas '[a, b]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseLocalValue(args[1], raw)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), flags, func(store stores.Store) error {
				return store.WriteValue(cmd.Context(), args[0], value)
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "string", false, "store the value as a string")

	return cmd
}

func parseLocalValue(text string, raw bool) (any, error) {
	if raw {
		return text, nil
	}
	var value any
	if err := yaml.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("failed to parse value: %w", err)
	}
	return value, nil
}

func newLocalListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List local values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			return withStore(cmd.Context(), flags, func(store stores.Store) error {
				entries, err := store.ListValues(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				if flags.output != "text" {
					return printValue(cmd.OutOrStdout(), flags.output, entries)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tVALUE\tUPDATED")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%v\t%s\n", e.Name, e.Value, e.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}
}

func newLocalDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a local value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(store stores.Store) error {
				return store.DeleteValue(cmd.Context(), args[0])
			})
		},
	}
}
