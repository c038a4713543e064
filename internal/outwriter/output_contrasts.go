package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/parquet"
	"github.com/huangsam/pairwise/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteContrastResults outputs the reporting table, dispatching based on the output format configured.
func WriteContrastResults(result schema.ContrastResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtPValue := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeContrastJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeContrastCSV(w, result, fmtFloat, fmtPValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteContrastsParquet(parquet.ConvertContrastRows(result.Rows, nil), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeContrastTable(w, result, cfg, fmtFloat, fmtPValue, duration)
		}, "Wrote table")
	}
	return nil
}

// effectHeader names the effect column after the scale of the rows.
func effectHeader(rows []schema.ContrastRow) string {
	for _, r := range rows {
		if r.Log2 {
			return "log2FC"
		}
	}
	return "FC"
}

// writeContrastTable generates and writes the human-readable table.
func writeContrastTable(w io.Writer, result schema.ContrastResult, cfg *contract.Config, fmtFloat, fmtPValue func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Pair", "Response", "Estimate", "SE", effectHeader(result.Rows), "95% CI", "P", "Adj P", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}

	labelWidth := GetMaxTableLabelWidth(cfg)
	data := make([][]string, 0, len(result.Rows))
	for _, r := range result.Rows {
		data = append(data, []string{
			contract.TruncateLabel(r.PairLabel, labelWidth),
			contract.TruncateLabel(r.Response, labelWidth),
			fmtFloat(r.Estimate),
			fmtFloat(r.StdErr),
			fmtFloat(r.FoldChange),
			fmt.Sprintf("[%s, %s]", fmtFloat(r.Lower), fmtFloat(r.Upper)),
			fmtPValue(r.PValue),
			fmtPValue(r.AdjPValue),
			label(r.AdjPValue, result.Alpha),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	significant := 0
	for _, r := range result.Rows {
		if r.Significant {
			significant++
		}
	}
	if _, err := fmt.Fprintf(w, "Showing %d contrasts for %d levels of %s (%d significant at alpha %g, %s correction)\n",
		len(result.Rows), len(result.Levels), result.Column, significant, result.Alpha, result.Method); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Fitted %d models and extracted %d directed contrasts in %v with %d workers. Run backend: %s\n",
		result.FitsPerformed, result.DirectedCount, duration, cfg.Workers, cfg.RunBackend); err != nil {
		return err
	}
	return nil
}

// writeContrastCSV writes the reporting table in CSV format.
func writeContrastCSV(w io.Writer, result schema.ContrastResult, fmtFloat, fmtPValue func(float64) string) error {
	header := []string{
		"pair",
		"response",
		"base",
		"other",
		"estimate",
		"std_err",
		"fold_change",
		"lower",
		"upper",
		"log2",
		"p_value",
		"adj_p_value",
		"significant",
		"label",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range result.Rows {
			rec := []string{
				r.PairLabel,
				r.Response,
				string(r.Base),
				string(r.Other),
				fmtFloat(r.Estimate),
				fmtFloat(r.StdErr),
				fmtFloat(r.FoldChange),
				fmtFloat(r.Lower),
				fmtFloat(r.Upper),
				strconv.FormatBool(r.Log2),
				fmtPValue(r.PValue),
				fmtPValue(r.AdjPValue),
				strconv.FormatBool(r.Significant),
				contract.GetPlainLabel(r.AdjPValue, result.Alpha),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeContrastJSON writes the whole contrast result with a label per row.
func writeContrastJSON(w io.Writer, result schema.ContrastResult) error {
	type jsonRow struct {
		Pair        string       `json:"pair"`
		Response    string       `json:"response"`
		Base        schema.Level `json:"base"`
		Other       schema.Level `json:"other"`
		Estimate    any          `json:"estimate"`
		StdErr      any          `json:"std_err"`
		FoldChange  any          `json:"fold_change"`
		Lower       any          `json:"lower"`
		Upper       any          `json:"upper"`
		Log2        bool         `json:"log2"`
		PValue      float64      `json:"p_value"`
		AdjPValue   float64      `json:"adj_p_value"`
		Significant bool         `json:"significant"`
		Label       string       `json:"label"`
	}
	type jsonResult struct {
		Column        string                  `json:"column"`
		Levels        []schema.Level          `json:"levels"`
		Family        schema.ModelFamily      `json:"family"`
		Method        schema.CorrectionMethod `json:"method"`
		Alpha         float64                 `json:"alpha"`
		FitsPerformed int                     `json:"fits_performed"`
		DirectedCount int                     `json:"directed_count"`
		Rows          []jsonRow               `json:"rows"`
	}

	out := jsonResult{
		Column:        result.Column,
		Levels:        result.Levels,
		Family:        result.Family,
		Method:        result.Method,
		Alpha:         result.Alpha,
		FitsPerformed: result.FitsPerformed,
		DirectedCount: result.DirectedCount,
		Rows:          make([]jsonRow, len(result.Rows)),
	}
	for i, r := range result.Rows {
		out.Rows[i] = jsonRow{
			Pair:        r.PairLabel,
			Response:    r.Response,
			Base:        r.Base,
			Other:       r.Other,
			Estimate:    jsonFloat(r.Estimate),
			StdErr:      jsonFloat(r.StdErr),
			FoldChange:  jsonFloat(r.FoldChange),
			Lower:       jsonFloat(r.Lower),
			Upper:       jsonFloat(r.Upper),
			Log2:        r.Log2,
			PValue:      r.PValue,
			AdjPValue:   r.AdjPValue,
			Significant: r.Significant,
			Label:       contract.GetPlainLabel(r.AdjPValue, result.Alpha),
		}
	}
	return writeJSON(w, out)
}
