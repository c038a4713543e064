package contract

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/pairwise/schema"
)

// Default values for configuration.
const (
	DefaultAlpha      = 0.05
	DefaultOutlierPct = 0.03
	DefaultPrecision  = 3
	MaxPrecision      = 6
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a contrast or baseline run.
// This struct is the "final, validated" config.
type Config struct {
	DataPath string
	Formula  string
	Column   string

	// Levels is the Level Set in the caller's order. Empty means every level present in the data.
	Levels []schema.Level

	// Directions is the caller-supplied direction table, validated against Levels by the engine.
	Directions     []schema.Pair
	AutoDirections bool

	Family     schema.ModelFamily
	Method     schema.CorrectionMethod
	Scope      schema.CorrectionScope
	Alpha      float64
	FitOptions schema.FitOptions

	Categorical []string
	Standardize bool

	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DataPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Formula      string `mapstructure:"formula"`
	Column       string `mapstructure:"column"`
	Levels       string `mapstructure:"levels"`
	Family       string `mapstructure:"family"`
	Responses    string `mapstructure:"responses"`
	Categorical  string `mapstructure:"categorical"`
	Standardize  bool   `mapstructure:"standardize"`
	Workers      int    `mapstructure:"workers"`
	Precision    int    `mapstructure:"precision"`
	Output       string `mapstructure:"output"`
	OutputFile   string `mapstructure:"output-file"`
	Width        int    `mapstructure:"width"`
	Color        string `mapstructure:"color"`
	RunBackend   string `mapstructure:"run-backend"`
	RunDBConnect string `mapstructure:"run-db-connect"`

	// --- Fit options ---
	PrevalenceFilter float64 `mapstructure:"prevalence-filter"`
	Winsorize        bool    `mapstructure:"winsorize"`
	OutlierPct       float64 `mapstructure:"outlier-pct"`

	// --- Fields from contrastsCmd.Flags() ---
	Pairs           string  `mapstructure:"pairs"`
	AutoDirections  bool    `mapstructure:"auto-directions"`
	Method          string  `mapstructure:"method"`
	CorrectionScope string  `mapstructure:"correction-scope"`
	Alpha           float64 `mapstructure:"alpha"`

	// --- Direction table from config file ---
	Directions []schema.Pair `mapstructure:"directions"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Levels = slices.Clone(c.Levels)
	clone.Directions = slices.Clone(c.Directions)
	clone.Categorical = slices.Clone(c.Categorical)
	clone.FitOptions.Responses = slices.Clone(c.FitOptions.Responses)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processModelInputs(cfg, input); err != nil {
		return err
	}
	if err := processDirections(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return resolveDataPath(cfg, input)
}

// ValidateAnalysis checks the model and correction settings of an already-populated Config.
// It is shared by the CLI and the MCP handlers.
func ValidateAnalysis(cfg *Config) error {
	if strings.TrimSpace(cfg.Formula) == "" || !strings.Contains(cfg.Formula, "~") {
		return fmt.Errorf("--formula must look like 'response ~ term + term' (received %q)", cfg.Formula)
	}
	if strings.TrimSpace(cfg.Column) == "" {
		return fmt.Errorf("--column is required")
	}
	if _, ok := schema.ValidModelFamilies[cfg.Family]; !ok {
		return fmt.Errorf("invalid family '%s'. must be count, logratio", cfg.Family)
	}
	if _, ok := schema.ValidCorrectionMethods[cfg.Method]; !ok {
		return fmt.Errorf("invalid method '%s'. must be fdr, holm, bonferroni, none", cfg.Method)
	}
	if _, ok := schema.ValidCorrectionScopes[cfg.Scope]; !ok {
		return fmt.Errorf("invalid correction scope '%s'. must be response, level-set", cfg.Scope)
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return fmt.Errorf("alpha must be between 0 and 1 (received %g)", cfg.Alpha)
	}
	opts := cfg.FitOptions
	if opts.PrevalenceFilter < 0 || opts.PrevalenceFilter > 1 {
		return fmt.Errorf("prevalence-filter must be between 0 and 1 (received %g)", opts.PrevalenceFilter)
	}
	if opts.OutlierPct < 0 || opts.OutlierPct >= 0.5 {
		return fmt.Errorf("outlier-pct must be in [0, 0.5) (received %g)", opts.OutlierPct)
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// validateSimpleInputs processes and validates the output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Standardize = input.Standardize
	cfg.Categorical = SplitList(input.Categorical)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	return nil
}

// processModelInputs handles the formula, column, family, correction and fit options.
func processModelInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Formula = strings.TrimSpace(input.Formula)
	cfg.Column = strings.TrimSpace(input.Column)
	cfg.Levels = schema.ParseLevels(input.Levels)
	cfg.Family = schema.ModelFamily(strings.ToLower(input.Family))
	cfg.Method = schema.CorrectionMethod(strings.ToLower(input.Method))
	cfg.Scope = schema.CorrectionScope(strings.ToLower(input.CorrectionScope))
	cfg.Alpha = input.Alpha
	cfg.FitOptions = schema.FitOptions{
		PrevalenceFilter: input.PrevalenceFilter,
		Winsorize:        input.Winsorize,
		OutlierPct:       input.OutlierPct,
		Responses:        SplitList(input.Responses),
	}
	if len(cfg.Levels) > 0 {
		if err := schema.ValidateLevelSet(cfg.Column, cfg.Levels); err != nil {
			return err
		}
	}
	return ValidateAnalysis(cfg)
}

// processDirections merges --pairs with the config-file direction table.
// The flag wins when both are present.
func processDirections(cfg *Config, input *ConfigRawInput) error {
	cfg.AutoDirections = input.AutoDirections
	if input.Pairs != "" {
		pairs, err := schema.ParsePairs(input.Pairs)
		if err != nil {
			return fmt.Errorf("invalid --pairs value: %w", err)
		}
		cfg.Directions = pairs
		return nil
	}
	cfg.Directions = slices.Clone(input.Directions)
	return nil
}

// validateBackendConfigs validates the run store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	if input.RunBackend == "" {
		cfg.RunBackend = schema.NoneBackend
		return nil
	}
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	return ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect)
}

// resolveDataPath checks that the positional data file exists.
func resolveDataPath(cfg *Config, input *ConfigRawInput) error {
	if err := ValidateDataPath(input.DataPathStr); err != nil {
		return err
	}
	cfg.DataPath = input.DataPathStr
	return nil
}

// ValidateDataPath checks that path names a readable regular file.
func ValidateDataPath(path string) error {
	if path == "" {
		return fmt.Errorf("a data file is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read data file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("data path %s is a directory", path)
	}
	return nil
}
