package cmd

import (
	"github.com/huangsam/pairwise/core"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/outwriter"
	"github.com/spf13/cobra"
)

// contrastsCmd runs every pairwise contrast of one categorical column.
var contrastsCmd = &cobra.Command{
	Use:   "contrasts <data.csv>",
	Short: "Report one corrected contrast per pair of levels.",
	Long: `Refit the model once per level of --column and report every pair of levels exactly once.

For k levels the model is fitted k times, each time with a different reference level.
Every fit yields k-1 directed contrasts; the direction table keeps one direction per
pair, and only those C(k,2) contrasts per response are corrected for multiplicity.

The direction table comes from --pairs, the 'directions' list of the config file,
or --auto-directions (level order). An incomplete table is an error.

Examples:
  # Three groups, explicit directions
  pairwise contrasts counts.csv --formula 'y ~ group' --column group \
    --pairs X:Y,X:Z,Y:Z

  # Adjust for depth with an offset and use Holm correction
  pairwise contrasts counts.csv --formula 'y ~ group + offset(log(depth))' \
    --column group --auto-directions --method holm

  # Compositional features with log-ratio transform, exported to CSV
  pairwise contrasts taxa.csv --family logratio --formula 'f1 + f2 + f3 ~ group' \
    --column group --auto-directions --output csv --output-file contrasts.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		result, duration, err := core.GetContrastResults(rootCtx, cfg, fitter, runManager)
		if err != nil {
			contract.LogFatal("Cannot run contrasts", err)
		}
		if err := outwriter.NewOutWriter().WriteContrasts(*result, cfg, duration); err != nil {
			contract.LogFatal("Cannot write contrasts", err)
		}
	},
}
