// Package parquet provides data structures and functions for exporting pairwise
// contrast data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/pairwise/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single contrast run with metadata.
// This struct maps to the pairwise_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalContrasts is the number of reported contrasts in this run
	TotalContrasts int32 `parquet:"total_contrasts,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Contrast is one line of the reporting table.
// This struct maps to the pairwise_contrasts database table.
type Contrast struct {
	// RunID references the parent run, nil for results written straight from a run
	RunID *int64 `parquet:"run_id,optional,snappy"`

	Pair        string  `parquet:"pair,snappy"`
	Response    string  `parquet:"response,snappy"`
	BaseLevel   string  `parquet:"base_level,snappy"`
	OtherLevel  string  `parquet:"other_level,snappy"`
	Estimate    float64 `parquet:"estimate,snappy"`
	StdErr      float64 `parquet:"std_err,snappy"`
	PValue      float64 `parquet:"p_value,snappy"`
	AdjPValue   float64 `parquet:"adj_p_value,snappy"`
	FoldChange  float64 `parquet:"fold_change,snappy"`
	Lower       float64 `parquet:"lower,snappy"`
	Upper       float64 `parquet:"upper,snappy"`
	Log2Scale   bool    `parquet:"log2_scale,snappy"`
	Significant bool    `parquet:"significant,snappy"`
}

// Baseline is the baseline estimate of one level.
// This struct maps to the pairwise_baselines database table.
type Baseline struct {
	RunID     *int64  `parquet:"run_id,optional,snappy"`
	Response  string  `parquet:"response,snappy"`
	BaseLevel string  `parquet:"base_level,snappy"`
	Estimate  float64 `parquet:"estimate,snappy"`
	StdErr    float64 `parquet:"std_err,snappy"`
	Value     float64 `parquet:"value,snappy"`
	Lower     float64 `parquet:"lower,snappy"`
	Upper     float64 `parquet:"upper,snappy"`
}

// writeParquet writes rows to outputPath with a schema derived from T's struct tags.
func writeParquet[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteContrastsParquet writes a slice of Contrast structs to a Parquet file.
func WriteContrastsParquet(data []Contrast, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteBaselinesParquet writes a slice of Baseline structs to a Parquet file.
func WriteBaselinesParquet(data []Baseline, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			TotalContrasts: record.TotalContrasts,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// ConvertContrastRows converts reporting rows to Contrast. runID may be nil.
func ConvertContrastRows(rows []schema.ContrastRow, runID *int64) []Contrast {
	result := make([]Contrast, len(rows))
	for i, r := range rows {
		result[i] = Contrast{
			RunID:       runID,
			Pair:        r.PairLabel,
			Response:    r.Response,
			BaseLevel:   string(r.Base),
			OtherLevel:  string(r.Other),
			Estimate:    r.Estimate,
			StdErr:      r.StdErr,
			PValue:      r.PValue,
			AdjPValue:   r.AdjPValue,
			FoldChange:  r.FoldChange,
			Lower:       r.Lower,
			Upper:       r.Upper,
			Log2Scale:   r.Log2,
			Significant: r.Significant,
		}
	}
	return result
}

// ConvertContrastRunRecords converts stored contrast rows for Parquet export.
func ConvertContrastRunRecords(records []schema.ContrastRunRecord) []Contrast {
	result := make([]Contrast, len(records))
	for i, record := range records {
		runID := record.RunID
		result[i] = ConvertContrastRows([]schema.ContrastRow{record.ContrastRow}, &runID)[0]
	}
	return result
}

// ConvertBaselines converts baseline estimates to Baseline. runID may be nil.
func ConvertBaselines(baselines []schema.BaselineEstimate, runID *int64) []Baseline {
	result := make([]Baseline, len(baselines))
	for i, b := range baselines {
		result[i] = Baseline{
			RunID:     runID,
			Response:  b.Response,
			BaseLevel: string(b.Base),
			Estimate:  b.Estimate,
			StdErr:    b.StdErr,
			Value:     b.Derived.Value,
			Lower:     b.Derived.Lower,
			Upper:     b.Derived.Upper,
		}
	}
	return result
}

// ConvertBaselineRunRecords converts stored baselines for Parquet export.
func ConvertBaselineRunRecords(records []schema.BaselineRunRecord) []Baseline {
	result := make([]Baseline, len(records))
	for i, record := range records {
		runID := record.RunID
		result[i] = ConvertBaselines([]schema.BaselineEstimate{record.BaselineEstimate}, &runID)[0]
	}
	return result
}
