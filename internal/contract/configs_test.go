package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation, pointing at a real file.
func validInput(t *testing.T) *ConfigRawInput {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("g,y\nA,1\nB,2\n"), 0o600))
	return &ConfigRawInput{
		DataPathStr: path,
		Formula:     "y ~ g",
		Column:      "g",
		Family:      "count",
		Method:      "fdr",
		Alpha:       DefaultAlpha,
		Workers:     2,
		Precision:   DefaultPrecision,
		Output:      "text",
		Color:       "yes",
		OutlierPct:  DefaultOutlierPct,

		CorrectionScope: "response",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "uppercase enums", mutate: func(in *ConfigRawInput) {
			in.Family = "LOGRATIO"
			in.Method = "Holm"
			in.Output = "JSON"
		}},
		{name: "invalid family", mutate: func(in *ConfigRawInput) { in.Family = "gamma" }, expectError: "invalid family"},
		{name: "invalid method", mutate: func(in *ConfigRawInput) { in.Method = "storey" }, expectError: "invalid method"},
		{name: "invalid scope", mutate: func(in *ConfigRawInput) { in.CorrectionScope = "global" }, expectError: "invalid correction scope"},
		{name: "alpha out of range", mutate: func(in *ConfigRawInput) { in.Alpha = 1.5 }, expectError: "alpha must be between"},
		{name: "formula without tilde", mutate: func(in *ConfigRawInput) { in.Formula = "y g" }, expectError: "--formula"},
		{name: "missing column", mutate: func(in *ConfigRawInput) { in.Column = "" }, expectError: "--column is required"},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: "workers must be greater than 0"},
		{name: "bad precision", mutate: func(in *ConfigRawInput) { in.Precision = 9 }, expectError: "precision must be between"},
		{name: "bad output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: "invalid output format"},
		{name: "parquet needs file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: "--output-file is required"},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: "invalid --color"},
		{name: "bad prevalence", mutate: func(in *ConfigRawInput) { in.PrevalenceFilter = -0.1 }, expectError: "prevalence-filter"},
		{name: "bad outlier pct", mutate: func(in *ConfigRawInput) { in.OutlierPct = 0.5 }, expectError: "outlier-pct"},
		{name: "duplicate levels", mutate: func(in *ConfigRawInput) { in.Levels = "A,B,A" }, expectError: "more than once"},
		{name: "bad pairs", mutate: func(in *ConfigRawInput) { in.Pairs = "A-B" }, expectError: "invalid --pairs"},
		{name: "bad backend", mutate: func(in *ConfigRawInput) { in.RunBackend = "oracle" }, expectError: "invalid run backend"},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.RunBackend = "mysql" }, expectError: "run-db-connect is required"},
		{name: "missing data file", mutate: func(in *ConfigRawInput) { in.DataPathStr = "/nonexistent/data.csv" }, expectError: "cannot read data file"},
		{name: "no data file", mutate: func(in *ConfigRawInput) { in.DataPathStr = "" }, expectError: "a data file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput(t)
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidate_PopulatesConfig(t *testing.T) {
	input := validInput(t)
	input.Levels = "C, A, B"
	input.Pairs = "A:B,A:C,B:C"
	input.Responses = "f1, f2"
	input.Categorical = "batch"
	input.Winsorize = true
	input.RunBackend = "SQLite"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, []schema.Level{"C", "A", "B"}, cfg.Levels)
	assert.Equal(t, []schema.Pair{{Base: "A", Other: "B"}, {Base: "A", Other: "C"}, {Base: "B", Other: "C"}}, cfg.Directions)
	assert.Equal(t, []string{"f1", "f2"}, cfg.FitOptions.Responses)
	assert.Equal(t, []string{"batch"}, cfg.Categorical)
	assert.True(t, cfg.FitOptions.Winsorize)
	assert.Equal(t, schema.SQLiteBackend, cfg.RunBackend)
	assert.Equal(t, schema.CountFamily, cfg.Family)
	assert.True(t, cfg.UseColors)
}

func TestProcessAndValidate_DirectionsFromConfigFile(t *testing.T) {
	input := validInput(t)
	input.Directions = []schema.Pair{{Base: "A", Other: "B"}}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, []schema.Pair{{Base: "A", Other: "B"}}, cfg.Directions)

	input.Pairs = "B:A"
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, []schema.Pair{{Base: "B", Other: "A"}}, cfg.Directions, "flag overrides config file")
}

func TestProcessAndValidate_EmptyBackendIsNone(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput(t)))
	assert.Equal(t, schema.NoneBackend, cfg.RunBackend)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		Levels:     []schema.Level{"A", "B"},
		Directions: []schema.Pair{{Base: "A", Other: "B"}},
		FitOptions: schema.FitOptions{Responses: []string{"f1"}},
	}
	clone := cfg.Clone()
	clone.Levels[0] = "Z"
	clone.Directions[0].Base = "Z"
	clone.FitOptions.Responses[0] = "z"

	assert.Equal(t, schema.Level("A"), cfg.Levels[0])
	assert.Equal(t, schema.Level("A"), cfg.Directions[0].Base)
	assert.Equal(t, "f1", cfg.FitOptions.Responses[0])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.NoneBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "root:pw@tcp(localhost:3306)/pairwise"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost dbname=pairwise"))

	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "root:pw@localhost"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "root:pw@tcp(localhost:3306)"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "dbname=pairwise"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost"))
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	require.NoError(t, ProcessProfilingConfig(profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(profile, "run"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "run", profile.Prefix)
}
