package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBaselineResult() schema.BaselineResult {
	return schema.BaselineResult{
		Column:        "group",
		Levels:        []schema.Level{"X", "Y"},
		FitsPerformed: 2,
		Baselines: []schema.BaselineEstimate{
			{Response: "y", Base: "X", Estimate: 2.4849, StdErr: 0.1, Derived: schema.BaselineDerived{Value: 12, Lower: 9.86, Upper: 14.6}},
			{Response: "y", Base: "Y", Estimate: 3.1781, StdErr: 0.1, Derived: schema.BaselineDerived{Value: 24, Lower: 19.7, Upper: 29.2}},
		},
	}
}

func TestWriteBaselineTable(t *testing.T) {
	var buf bytes.Buffer
	fmtFloat, _ := createFormatters(2)
	require.NoError(t, writeBaselineTable(&buf, sampleBaselineResult(), testConfig(), fmtFloat, time.Second))

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "BASELINE")
	assert.Contains(t, out, "12.00")
	assert.Contains(t, out, "[19.70, 29.20]")
	assert.Contains(t, out, "Showing 2 baselines for 2 levels of group")
	assert.Contains(t, out, "Fitted 2 models")
}

func TestWriteBaselineCSV(t *testing.T) {
	var buf bytes.Buffer
	fmtFloat, _ := createFormatters(3)
	require.NoError(t, writeBaselineCSV(&buf, sampleBaselineResult(), fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"level", "response", "estimate", "std_err", "baseline", "lower", "upper"}, records[0])
	assert.Equal(t, []string{"X", "y", "2.485", "0.100", "12.000", "9.860", "14.600"}, records[1])
}

func TestWriteBaselineJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBaselineJSON(&buf, sampleBaselineResult()))

	var decoded struct {
		Column    string `json:"column"`
		Baselines []struct {
			Level    string  `json:"level"`
			Baseline float64 `json:"baseline"`
		} `json:"baselines"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "group", decoded.Column)
	require.Len(t, decoded.Baselines, 2)
	assert.Equal(t, "Y", decoded.Baselines[1].Level)
	assert.InDelta(t, 24.0, decoded.Baselines[1].Baseline, 1e-12)
}

func TestWriteBaselineResults_Modes(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []schema.OutputMode{schema.TextOut, schema.CSVOut, schema.JSONOut, schema.ParquetOut} {
		cfg := testConfig()
		cfg.Output = mode
		cfg.OutputFile = filepath.Join(dir, "baselines."+string(mode))
		require.NoError(t, NewOutWriter().WriteBaselines(sampleBaselineResult(), cfg, time.Second), mode)

		info, err := os.Stat(cfg.OutputFile)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
