//go:build basic

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contrastOutput struct {
	Levels        []string `json:"levels"`
	FitsPerformed int      `json:"fits_performed"`
	DirectedCount int      `json:"directed_count"`
	Rows          []struct {
		Pair       string  `json:"pair"`
		Base       string  `json:"base"`
		Other      string  `json:"other"`
		FoldChange float64 `json:"fold_change"`
		AdjPValue  float64 `json:"adj_p_value"`
	} `json:"rows"`
}

var modelArgs = []string{"--formula", "y ~ group", "--column", "group"}

// TestContrastsVerification checks fold changes against the group means of the test data.
func TestContrastsVerification(t *testing.T) {
	args := append([]string{"contrasts", "testdata/counts.csv"}, modelArgs...)
	args = append(args, "--pairs", "X:Y,Z:X,Y:Z", "--output", "json")

	stdout, err := runPairwise(t, nil, args...)
	require.NoError(t, err)

	var out contrastOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))

	assert.Equal(t, 3, out.FitsPerformed)
	assert.Equal(t, 6, out.DirectedCount)
	require.Len(t, out.Rows, 3)

	// Means are X=12, Y=24, Z=2 and fold change is other over base.
	want := map[string]float64{"X:Y": 2, "Z:X": 6, "Y:Z": 1.0 / 12}
	for _, row := range out.Rows {
		expected, ok := want[row.Pair]
		require.True(t, ok, "unexpected pair %s", row.Pair)
		assert.InDelta(t, expected, row.FoldChange, 1e-6, row.Pair)
		assert.GreaterOrEqual(t, row.AdjPValue, 0.0)
		assert.LessOrEqual(t, row.AdjPValue, 1.0)
	}
}

func TestContrastsIncompleteDirections(t *testing.T) {
	args := append([]string{"contrasts", "testdata/counts.csv"}, modelArgs...)
	args = append(args, "--pairs", "X:Y")

	_, err := runPairwise(t, nil, args...)
	assert.Error(t, err)
}

func TestBaselinesCSV(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "baselines.csv")
	args := append([]string{"baselines", "testdata/counts.csv"}, modelArgs...)
	args = append(args, "--output", "csv", "--output-file", outFile)

	_, err := runPairwise(t, nil, args...)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level")
	assert.Contains(t, string(data), "X")
	assert.Contains(t, string(data), "Z")
}

func TestRunsWithSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	env := []string{"PAIRWISE_RUN_BACKEND=sqlite", "PAIRWISE_RUN_DB_CONNECT=" + dbPath}

	args := append([]string{"contrasts", "testdata/counts.csv"}, modelArgs...)
	args = append(args, "--auto-directions", "--output", "csv")
	_, err := runPairwise(t, env, args...)
	require.NoError(t, err)

	stdout, err := runPairwise(t, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sqlite")

	prefix := filepath.Join(t.TempDir(), "history")
	_, err = runPairwise(t, env, "runs", "export", "--output-file", prefix)
	require.NoError(t, err)
	for _, suffix := range []string{".runs.parquet", ".contrasts.parquet", ".baselines.parquet"} {
		assert.FileExists(t, prefix+suffix)
	}

	_, err = runPairwise(t, env, "runs", "clear")
	require.NoError(t, err)
	assert.NoFileExists(t, dbPath)
}
