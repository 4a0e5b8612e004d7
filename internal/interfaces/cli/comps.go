package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
)

func newCompsCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "comps <pin>",
		Short: "List the ranked comparables for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(opts)
			if err != nil {
				return err
			}

			comparables, err := api.Comparables(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if opts.Output == "json" {
				return printJSON(cmd.OutOrStdout(), comparables)
			}
			printCompsTable(cmd, comparables)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of comparables (0 = server default)")
	return cmd
}

func printCompsTable(cmd *cobra.Command, comparables []analysis.Comparable) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PIN\tKIND\tVALUE\tSQFT\tBEDS\tSAME BLDG")
	for i := range comparables {
		c := &comparables[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
			c.PIN, c.Kind,
			fmtFloat(c.Value()), fmtFloat(c.SquareFeet), fmtInt(c.Bedrooms),
			c.SameBuilding)
	}
	_ = w.Flush()
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}

func fmtInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
