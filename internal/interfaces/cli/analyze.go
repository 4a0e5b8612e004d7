package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/pkg/client"
)

func newAnalyzeCommand(opts *RootOptions) *cobra.Command {
	var (
		limit int
		async bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <pin>",
		Short: "Run an appeal opportunity analysis for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(opts)
			if err != nil {
				return err
			}

			if async {
				if err := api.EnqueueAnalysis(cmd.Context(), args[0], limit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "analysis queued for %s\n", args[0])
				return nil
			}

			result, err := api.Analyze(cmd.Context(), client.AnalyzeRequest{PIN: args[0], Limit: limit})
			if err != nil {
				return err
			}

			if opts.Output == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printAnalysisSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of comparables (0 = server default)")
	cmd.Flags().BoolVar(&async, "async", false, "queue the analysis instead of waiting")
	return cmd
}

func printAnalysisSummary(cmd *cobra.Command, result *analysis.AppealAnalysis) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "PIN:          %s\n", result.PIN)
	fmt.Fprintf(out, "Analysis ID:  %s\n", result.ID)
	fmt.Fprintf(out, "Comparables:  %d\n", len(result.Comparables))

	opp := result.Opportunity
	if opp == nil {
		return
	}
	fmt.Fprintf(out, "Score:        %d/100 (%s confidence)\n", opp.OpportunityScore, opp.Confidence)
	fmt.Fprintf(out, "Overvalued:   $%.0f (median comparable $%.0f)\n", opp.EstimatedOvervaluation, opp.MedianComparableValue)
	fmt.Fprintf(out, "Est. savings: $%.0f/yr\n", opp.EstimatedTaxSavings)
	if len(opp.AppealGrounds) > 0 {
		fmt.Fprintf(out, "Grounds:\n")
		for _, g := range opp.AppealGrounds {
			fmt.Fprintf(out, "  - %s\n", g)
		}
	}
}
