package cmd

import (
	"fmt"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/runstore"
	"github.com/huangsam/pairwise/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsBackend reads and validates the run store settings without the full shared setup.
func runsBackend() (schema.DatabaseBackend, string, error) {
	setConfigSource()
	if err := readConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("run-backend")
	connStr := viper.GetString("run-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", backendStr)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// runsSetup loads minimal configuration needed for run store operations.
func runsSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsBackend()
	if err != nil {
		return err
	}
	if err := runstore.InitStores(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run tracking: %w", err)
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsMigrateSetup loads the run store settings without creating any table,
// so migrations can start from a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsBackend()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunDBFilePath()
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsCmd focused on run history management.
//
// Note: runs subcommands skip the data file and model validation of sharedSetup.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage recorded contrast and baseline runs",
	Long: `Manage the run history written when --run-backend is set.

Every contrasts or baselines run records its configuration, its duration and its
reported rows. Supported backends: SQLite, MySQL, PostgreSQL, or None.

Subcommands:
  status  - Show run store statistics and connection info
  export  - Export all runs to Parquet files
  clear   - Remove all recorded runs
  migrate - Run database schema migrations`,
}

// runsClearCmd clears the run store.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all run data from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the run tables

Examples:
  PAIRWISE_RUN_BACKEND=sqlite pairwise runs clear`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		backend, connStr, err := runsBackend()
		if err != nil {
			return err
		}
		cfg.RunBackend = backend
		cfg.RunDBConnect = connStr
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := runstore.ClearRuns(cfg.RunBackend, runDBFilePath(), cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear runs", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

// runDBFilePath returns the SQLite file of the configured run store.
func runDBFilePath() string {
	if cfg.RunBackend == schema.SQLiteBackend && cfg.RunDBConnect != "" {
		return cfg.RunDBConnect
	}
	return contract.GetRunDBFilePath()
}

// runsStatusCmd shows run store status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run store statistics and connection details",
	Long: `Show the backend, the number of recorded runs and the size of every run table.

Examples:
  PAIRWISE_RUN_BACKEND=sqlite pairwise runs status`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := runstore.Manager.GetRunStore()
		if store == nil {
			runstore.PrintRunStatus(schema.RunStatus{Backend: string(cfg.RunBackend)})
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		runstore.PrintRunStatus(status)
	},
}

// runsExportCmd exports run data to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet",
	Long: `Export all stored runs to Parquet format for use with analytics tools.

Writes three files next to --output-file:
- <prefix>.runs.parquet      - metadata about each run
- <prefix>.contrasts.parquet - every reported contrast
- <prefix>.baselines.parquet - every baseline estimate

Examples:
  PAIRWISE_RUN_BACKEND=sqlite pairwise runs export --output-file history
  duckdb -c "SELECT * FROM read_parquet('history.contrasts.parquet') LIMIT 10"`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runstore.ExecuteRunExport(cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export runs", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  pairwise runs migrate

  # Migrate to specific version
  pairwise runs migrate --target-version 1

  # Rollback to initial state
  pairwise runs migrate --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := runstore.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
