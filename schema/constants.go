package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// ModelFamily represents the model family handed to the fitting service.
	ModelFamily string

	// LinkScale represents the native scale of a family's estimates.
	LinkScale string

	// CorrectionMethod represents the multiple-testing adjustment.
	CorrectionMethod string

	// CorrectionScope represents which records form one correction family.
	CorrectionScope string

	// DatabaseBackend represents the database backend for run tracking.
	DatabaseBackend string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All model families supported.
const (
	CountFamily    ModelFamily = "count" // default
	LogRatioFamily ModelFamily = "logratio"
)

// All link scales supported.
const (
	LogScale  LinkScale = "log"
	Log2Scale LinkScale = "log2"
)

// All correction methods supported.
const (
	FDRMethod        CorrectionMethod = "fdr" // default
	HolmMethod       CorrectionMethod = "holm"
	BonferroniMethod CorrectionMethod = "bonferroni"
	NoneMethod       CorrectionMethod = "none"
)

// All correction scopes supported.
const (
	ResponseScope CorrectionScope = "response" // default
	LevelSetScope CorrectionScope = "level-set"
)

// All run backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidModelFamilies lists all valid model families.
var ValidModelFamilies = map[ModelFamily]struct{}{
	CountFamily:    {},
	LogRatioFamily: {},
}

// ValidCorrectionMethods lists all valid correction methods.
var ValidCorrectionMethods = map[CorrectionMethod]struct{}{
	FDRMethod:        {},
	HolmMethod:       {},
	BonferroniMethod: {},
	NoneMethod:       {},
}

// ValidCorrectionScopes lists all valid correction scopes.
var ValidCorrectionScopes = map[CorrectionScope]struct{}{
	ResponseScope: {},
	LevelSetScope: {},
}

// ValidDatabaseBackends lists all valid run backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Scale returns the native scale of the family's estimates.
func (f ModelFamily) Scale() LinkScale {
	if f == LogRatioFamily {
		return Log2Scale
	}
	return LogScale
}

// InterceptTerm is the display name of the model intercept.
const InterceptTerm = "(Intercept)"

// NormalQuantile975 is the two-sided 95% normal multiplier used for all intervals.
const NormalQuantile975 = 1.96
