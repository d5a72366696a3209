package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/policy"
)

func newPolicyCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the policies guarding schemes",
	}

	cmd.AddCommand(newPolicyListCommand(flags))
	cmd.AddCommand(newPolicyEvalCommand(flags))

	return cmd
}

// newPolicyEngine loads the built-in policies plus those configured.
func newPolicyEngine(ctx context.Context, flags *globalFlags) (*policy.Engine, error) {
	settings, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}
	e, err := policy.NewEngine(ctx, log.Logger, policy.WithQuery(settings.Policy.Query))
	if err != nil {
		return nil, err
	}
	if len(settings.Policy.Paths) > 0 {
		if err := e.LoadPolicies(ctx, settings.Policy.Paths); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func newPolicyListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newPolicyEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}

			policies := e.ListPolicies()
			if flags.output != "text" {
				for i := range policies {
					policies[i].Rego = ""
				}
				return printValue(cmd.OutOrStdout(), flags.output, policies)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tENABLED\tSOURCE\tDESCRIPTION")
			for _, p := range policies {
				source := p.Source
				if source == "" {
					source = "(built-in)"
				}
				fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", p.Name, p.Enabled, source, p.Description)
			}
			return w.Flush()
		},
	}
}

func newPolicyEvalCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <uri>",
		Short: "Show the policy decision for a URI without dereferencing it",
		Long: `Evaluate the policy decision for a URI as it would be made at the top
level. Nested parameter URIs are not dereferenced and appear as text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := curi.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := newPolicyEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			decision, err := e.Decide(cmd.Context(), policy.NewInput(u, u.Params(), 1))
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), flags.output, decision)
		},
	}
}
