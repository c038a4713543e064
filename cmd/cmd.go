// Package cmd defines the command-line interface for pairwise.
package cmd

import (
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(contrastsCmd)
	rootCmd.AddCommand(baselinesCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("formula", "", "Model formula, e.g. 'count ~ group + age + offset(log(depth))'")
	rootCmd.PersistentFlags().StringP("column", "c", "", "Categorical column whose levels are compared")
	rootCmd.PersistentFlags().String("levels", "", "Comma-separated level set (default: every level in the data)")
	rootCmd.PersistentFlags().String("family", string(schema.CountFamily), "Model family: count or logratio")
	rootCmd.PersistentFlags().String("responses", "", "Comma-separated compositional features when the formula has no left side")
	rootCmd.PersistentFlags().String("categorical", "", "Comma-separated columns to treat as categorical even when numeric")
	rootCmd.PersistentFlags().Bool("standardize", true, "Center and scale numeric covariates before fitting")
	rootCmd.PersistentFlags().Float64("prevalence-filter", 0, "Minimum fraction of samples where a logratio feature is nonzero")
	rootCmd.PersistentFlags().Bool("winsorize", false, "Clip the upper tail of each logratio feature")
	rootCmd.PersistentFlags().Float64("outlier-pct", contract.DefaultOutlierPct, "Upper tail fraction clipped by --winsorize")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent fits")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("run-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of contrastsCmd to Viper
	contrastsCmd.Flags().String("pairs", "", "Direction table as comma-separated base:other entries, one per unordered pair")
	contrastsCmd.Flags().Bool("auto-directions", false, "Use level order for every pair when no direction table is given")
	contrastsCmd.Flags().String("method", string(schema.FDRMethod), "Multiplicity correction: fdr or holm or bonferroni or none")
	contrastsCmd.Flags().String("correction-scope", string(schema.ResponseScope), "Correction family: response or level-set")
	contrastsCmd.Flags().Float64("alpha", contract.DefaultAlpha, "Significance level for adjusted p-values")
	if err := viper.BindPFlags(contrastsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding contrasts flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
