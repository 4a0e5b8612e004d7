package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPropertyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "property <pin>",
		Short: "Show the subject property snapshot for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(opts)
			if err != nil {
				return err
			}

			subject, err := api.GetProperty(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if opts.Output == "json" {
				return printJSON(cmd.OutOrStdout(), subject)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PIN:           %s\n", subject.PIN)
			fmt.Fprintf(out, "Class:         %s\n", subject.ClassCode)
			fmt.Fprintf(out, "Township:      %s\n", subject.TownshipCode)
			fmt.Fprintf(out, "Neighborhood:  %s\n", subject.NeighborhoodCode)
			fmt.Fprintf(out, "Square feet:   %s\n", fmtFloat(subject.SquareFeet))
			fmt.Fprintf(out, "Bedrooms:      %s\n", fmtInt(subject.Bedrooms))
			fmt.Fprintf(out, "Year built:    %s\n", fmtInt(subject.YearBuilt))
			fmt.Fprintf(out, "Assessed:      %s\n", fmtFloat(subject.AssessedValue))
			fmt.Fprintf(out, "Prior:         %s\n", fmtFloat(subject.PriorAssessedValue))
			return nil
		},
	}
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <pin>",
		Short: "List recent stored analyses for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(opts)
			if err != nil {
				return err
			}

			list, err := api.ListAnalyses(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if opts.Output == "json" {
				return printJSON(cmd.OutOrStdout(), list)
			}

			out := cmd.OutOrStdout()
			for _, a := range list {
				score := "-"
				if a.Opportunity != nil {
					score = fmt.Sprintf("%d (%s)", a.Opportunity.OpportunityScore, a.Opportunity.Confidence)
				}
				fmt.Fprintf(out, "%s  %s  score=%s  comps=%d\n",
					a.CreatedAt.Format("2006-01-02 15:04"), a.ID, score, len(a.Comparables))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of analyses to list")
	return cmd
}
