package cmd

import (
	"fmt"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/mcp"
	"github.com/huangsam/pairwise/internal/runstore"
	"github.com/huangsam/pairwise/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// mcpSetup builds the base config of the MCP tools. Data, formula and column
// come with every tool call, so only the shared settings are read here.
func mcpSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsBackend()
	if err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	cfg.Family = schema.ModelFamily(viper.GetString("family"))
	cfg.Method = schema.CorrectionMethod(viper.GetString("method"))
	cfg.Scope = schema.CorrectionScope(viper.GetString("correction-scope"))
	cfg.Alpha = viper.GetFloat64("alpha")
	cfg.Workers = max(viper.GetInt("workers"), 1)
	cfg.Standardize = viper.GetBool("standardize")
	cfg.Categorical = contract.SplitList(input.Categorical)
	cfg.FitOptions = schema.FitOptions{
		PrevalenceFilter: input.PrevalenceFilter,
		Winsorize:        input.Winsorize,
		OutlierPct:       input.OutlierPct,
		Responses:        contract.SplitList(input.Responses),
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return runstore.InitStores(backend, connStr)
}

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Pairwise MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents run contrasts and baselines.

Tools:
  run_contrasts      - pairwise contrasts of one categorical column
  estimate_baselines - baseline count of every level`,
	PreRunE: mcpSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, fitter, runManager)
	},
}
