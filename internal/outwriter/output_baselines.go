package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/parquet"
	"github.com/huangsam/pairwise/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteBaselineResults outputs baseline estimates, dispatching based on the output format configured.
func WriteBaselineResults(result schema.BaselineResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBaselineJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBaselineCSV(w, result, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteBaselinesParquet(parquet.ConvertBaselines(result.Baselines, nil), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBaselineTable(w, result, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeBaselineTable generates and writes the human-readable table.
func writeBaselineTable(w io.Writer, result schema.BaselineResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Level", "Response", "Estimate", "SE", "Baseline", "95% CI"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	labelWidth := GetMaxTableLabelWidth(cfg)
	data := make([][]string, 0, len(result.Baselines))
	for _, b := range result.Baselines {
		data = append(data, []string{
			contract.TruncateLabel(string(b.Base), labelWidth),
			contract.TruncateLabel(b.Response, labelWidth),
			fmtFloat(b.Estimate),
			fmtFloat(b.StdErr),
			fmtFloat(b.Derived.Value),
			fmt.Sprintf("[%s, %s]", fmtFloat(b.Derived.Lower), fmtFloat(b.Derived.Upper)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing %d baselines for %d levels of %s\n", len(result.Baselines), len(result.Levels), result.Column); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Fitted %d models in %v with %d workers. Run backend: %s\n",
		result.FitsPerformed, duration, cfg.Workers, cfg.RunBackend); err != nil {
		return err
	}
	return nil
}

// writeBaselineCSV writes baseline estimates in CSV format.
func writeBaselineCSV(w io.Writer, result schema.BaselineResult, fmtFloat func(float64) string) error {
	header := []string{"level", "response", "estimate", "std_err", "baseline", "lower", "upper"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range result.Baselines {
			rec := []string{
				string(b.Base),
				b.Response,
				fmtFloat(b.Estimate),
				fmtFloat(b.StdErr),
				fmtFloat(b.Derived.Value),
				fmtFloat(b.Derived.Lower),
				fmtFloat(b.Derived.Upper),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeBaselineJSON writes the baseline result as JSON.
func writeBaselineJSON(w io.Writer, result schema.BaselineResult) error {
	type jsonBaseline struct {
		Level    schema.Level `json:"level"`
		Response string       `json:"response"`
		Estimate any          `json:"estimate"`
		StdErr   any          `json:"std_err"`
		Baseline any          `json:"baseline"`
		Lower    any          `json:"lower"`
		Upper    any          `json:"upper"`
	}
	out := struct {
		Column        string         `json:"column"`
		Levels        []schema.Level `json:"levels"`
		FitsPerformed int            `json:"fits_performed"`
		Baselines     []jsonBaseline `json:"baselines"`
	}{
		Column:        result.Column,
		Levels:        result.Levels,
		FitsPerformed: result.FitsPerformed,
		Baselines:     make([]jsonBaseline, len(result.Baselines)),
	}
	for i, b := range result.Baselines {
		out.Baselines[i] = jsonBaseline{
			Level:    b.Base,
			Response: b.Response,
			Estimate: jsonFloat(b.Estimate),
			StdErr:   jsonFloat(b.StdErr),
			Baseline: jsonFloat(b.Derived.Value),
			Lower:    jsonFloat(b.Derived.Lower),
			Upper:    jsonFloat(b.Derived.Upper),
		}
	}
	return writeJSON(w, out)
}
