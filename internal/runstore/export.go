package runstore

import (
	"errors"
	"fmt"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/parquet"
)

// ExecuteRunExport exports every recorded run, contrast and baseline to Parquet files
// named after outputFile.
func ExecuteRunExport(outputFile string) error {
	return exportRuns(Manager, outputFile)
}

func exportRuns(mgr contract.RunManager, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := mgr.GetRunStore()
	if store == nil {
		return errors.New("run tracking is disabled. set --run-backend to export runs")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total contrast records: %d\n", status.TableSizes[contrastsTable])
	fmt.Printf("Total baseline records: %d\n", status.TableSizes[baselinesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	contrasts, err := store.GetAllContrasts()
	if err != nil {
		return fmt.Errorf("failed to retrieve contrasts: %w", err)
	}
	baselines, err := store.GetAllBaselines()
	if err != nil {
		return fmt.Errorf("failed to retrieve baselines: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	contrastsFile := outputFile + ".contrasts.parquet"
	if err := parquet.WriteContrastsParquet(parquet.ConvertContrastRunRecords(contrasts), contrastsFile); err != nil {
		return fmt.Errorf("failed to write contrasts: %w", err)
	}
	fmt.Printf("Exported %d contrast records to: %s\n", len(contrasts), contrastsFile)

	baselinesFile := outputFile + ".baselines.parquet"
	if err := parquet.WriteBaselinesParquet(parquet.ConvertBaselineRunRecords(baselines), baselinesFile); err != nil {
		return fmt.Errorf("failed to write baselines: %w", err)
	}
	fmt.Printf("Exported %d baseline records to: %s\n", len(baselines), baselinesFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - R (via arrow)")
	fmt.Println("  - DuckDB")
	return nil
}
