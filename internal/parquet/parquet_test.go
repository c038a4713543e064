package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pairwise/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"run", new(Run), []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_contrasts", "config_params"}},
		{"contrast", new(Contrast), []string{
			"run_id", "pair", "response", "base_level", "other_level", "estimate", "std_err",
			"p_value", "adj_p_value", "fold_change", "lower", "upper", "log2_scale", "significant",
		}},
		{"baseline", new(Baseline), []string{"run_id", "response", "base_level", "estimate", "std_err", "value", "lower", "upper"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, colName := range tt.columns {
				_, ok := s.Lookup(colName)
				assert.True(t, ok, "Column %s should exist in schema", colName)
			}
		})
	}
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	start := time.Now().Add(-time.Minute)
	end := start.Add(1500 * time.Millisecond)
	duration := int32(1500)
	params := `{"column":"group","family":"count"}`

	data := []Run{
		{RunID: 1, StartTime: start, EndTime: &end, RunDurationMs: &duration, TotalContrasts: 3, ConfigParams: &params},
		{RunID: 2, StartTime: start}, // Still running
	}
	require.NoError(t, WriteRunsParquet(data, outputPath))

	read := readAll[Run](t, outputPath)
	require.Len(t, read, 2)
	assert.Equal(t, int64(1), read[0].RunID)
	assert.Equal(t, int32(3), read[0].TotalContrasts)
	require.NotNil(t, read[0].EndTime)
	assert.WithinDuration(t, end, *read[0].EndTime, time.Microsecond)
	require.NotNil(t, read[0].ConfigParams)
	assert.Equal(t, params, *read[0].ConfigParams)
	assert.Nil(t, read[1].EndTime)
	assert.Nil(t, read[1].RunDurationMs)
	assert.Nil(t, read[1].ConfigParams)
}

func TestWriteContrastsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "contrasts.parquet")
	rows := []schema.ContrastRow{
		{PairLabel: "Y vs X", Response: "y", Base: "X", Other: "Y", Estimate: 0.69, StdErr: 0.1, FoldChange: 2, Lower: 1.6, Upper: 2.4, PValue: 0.001, AdjPValue: 0.003, Significant: true},
		{PairLabel: "Z vs Y", Response: "y", Base: "Y", Other: "Z", Estimate: -0.2, StdErr: 0.3, FoldChange: 0.82, Lower: 0.4, Upper: 1.5, PValue: 0.5, AdjPValue: 0.5},
	}
	require.NoError(t, WriteContrastsParquet(ConvertContrastRows(rows, nil), outputPath))

	read := readAll[Contrast](t, outputPath)
	require.Len(t, read, 2)
	assert.Nil(t, read[0].RunID)
	assert.Equal(t, "Y vs X", read[0].Pair)
	assert.Equal(t, "X", read[0].BaseLevel)
	assert.Equal(t, "Y", read[0].OtherLevel)
	assert.InDelta(t, 2.0, read[0].FoldChange, 1e-12)
	assert.True(t, read[0].Significant)
	assert.False(t, read[1].Significant)
}

func TestWriteBaselinesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "baselines.parquet")
	records := []schema.BaselineRunRecord{
		{RunID: 7, BaselineEstimate: schema.BaselineEstimate{Response: "y", Base: "X", Estimate: 2.48, StdErr: 0.1,
			Derived: schema.BaselineDerived{Value: 12, Lower: 9.8, Upper: 14.6}}},
	}
	require.NoError(t, WriteBaselinesParquet(ConvertBaselineRunRecords(records), outputPath))

	read := readAll[Baseline](t, outputPath)
	require.Len(t, read, 1)
	require.NotNil(t, read[0].RunID)
	assert.Equal(t, int64(7), *read[0].RunID)
	assert.Equal(t, "X", read[0].BaseLevel)
	assert.InDelta(t, 12.0, read[0].Value, 1e-12)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteContrastsParquet([]Contrast{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Parquet footer is always written")
}

func TestWriteParquet_BadPath(t *testing.T) {
	err := WriteRunsParquet(nil, filepath.Join(t.TempDir(), "missing", "runs.parquet"))
	assert.Error(t, err)
}

func TestConvertRunRecords(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	out := ConvertRunRecords([]schema.RunRecord{{RunID: 4, StartTime: start, TotalContrasts: 10}})
	require.Len(t, out, 1)
	assert.Equal(t, Run{RunID: 4, StartTime: start, TotalContrasts: 10}, out[0])

	contrasts := ConvertContrastRunRecords([]schema.ContrastRunRecord{{RunID: 9, ContrastRow: schema.ContrastRow{Response: "f1"}}})
	require.NotNil(t, contrasts[0].RunID)
	assert.Equal(t, int64(9), *contrasts[0].RunID)
	assert.Equal(t, "f1", contrasts[0].Response)
}
