package cmd

import (
	"github.com/huangsam/pairwise/core"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/outwriter"
	"github.com/huangsam/pairwise/schema"
	"github.com/spf13/cobra"
)

// baselinesCmd estimates the expected count of every level.
var baselinesCmd = &cobra.Command{
	Use:   "baselines <data.csv>",
	Short: "Estimate the baseline count of every level.",
	Long: `Refit the count model once per level of --column and report its intercept.

With --standardize (the default) numeric covariates are centered, so each baseline is
the expected count at the covariate means. Baselines always use the count family.

Examples:
  pairwise baselines counts.csv --formula 'y ~ group + age' --column group
  pairwise baselines counts.csv --formula 'y ~ group' --column group --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		cfg.Family = schema.CountFamily
		result, duration, err := core.GetBaselineResults(rootCtx, cfg, fitter, runManager)
		if err != nil {
			contract.LogFatal("Cannot estimate baselines", err)
		}
		if err := outwriter.NewOutWriter().WriteBaselines(*result, cfg, duration); err != nil {
			contract.LogFatal("Cannot write baselines", err)
		}
	},
}
