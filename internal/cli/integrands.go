package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Quarlos/integrationMTS/internal/integrand"
)

// NewIntegrandsCommand creates the integrands command.
func NewIntegrandsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "integrands",
		Short: "List the compiled-in integrands",
		Long: `List the functions that can be selected with --integrand.

Example:
  integrate integrands
  integrate integrands --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegrands(rootOpts, cmd)
		},
	}
}

func runIntegrands(opts *RootOptions, cmd *cobra.Command) error {
	entries := integrand.Entries()

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(entries)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		marker := " "
		if e.Name == integrand.DefaultName {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", marker, e.Name, e.Formula)
	}
	return tw.Flush()
}
