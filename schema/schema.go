// Package schema has configs, models and global variables for all parts of pairwise.
package schema

import "fmt"

// Level is an opaque category identifier within one categorical column.
type Level string

// ContrastRecord is the effect of Other relative to Base in the model's native scale.
type ContrastRecord struct {
	Response  string  `json:"response"`  // Response column or compositional feature
	Other     Level   `json:"other"`     // Level being compared
	Base      Level   `json:"base"`      // Reference level of the refit
	Estimate  float64 `json:"estimate"`  // Log or log2 scale effect
	StdErr    float64 `json:"std_err"`   // Standard error of Estimate
	Statistic float64 `json:"statistic"` // Test statistic reported by the fitter
	PValue    float64 `json:"p_value"`   // Raw two-sided p-value
}

// Pair returns the directed pair of the record.
func (r ContrastRecord) Pair() Pair {
	return Pair{Base: r.Base, Other: r.Other}
}

// EffectScale holds a record's estimate on its reporting scale.
// When Log2 is set the values are log2 fold changes and were not exponentiated.
type EffectScale struct {
	FoldChange float64 `json:"fold_change"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Log2       bool    `json:"log2"`
}

// CorrectedContrast is a ContrastRecord after multiplicity correction.
type CorrectedContrast struct {
	ContrastRecord
	AdjPValue   float64     `json:"adj_p_value"`
	Significant bool        `json:"significant"`
	Effect      EffectScale `json:"effect"`
}

// BaselineDerived is the exponentiated intercept and its interval.
type BaselineDerived struct {
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// BaselineEstimate is the expected outcome for one level at the covariate reference point.
type BaselineEstimate struct {
	Response string          `json:"response"`
	Base     Level           `json:"base"`
	Estimate float64         `json:"estimate"`
	StdErr   float64         `json:"std_err"`
	Derived  BaselineDerived `json:"derived"`
}

// Coefficient is one row of a fitted model.
// Column and Level map the term back to its categorical source so that
// callers never have to parse Term.
type Coefficient struct {
	Response  string
	Term      string // Display name, e.g. "groupB"
	Column    string // Source column, empty for the intercept
	Level     Level  // Non-reference level for treatment-coded terms
	Intercept bool
	Estimate  float64
	StdErr    float64
	Statistic float64
	PValue    float64
}

// CoefficientTable is the result of one fitting service call.
type CoefficientTable struct {
	Family     ModelFamily
	Responses  []string
	Rows       []Coefficient
	DF         int     // Residual degrees of freedom
	Dispersion float64 // Estimated dispersion, 1 when not applicable
	NObs       int     // Observations used after complete-case filtering
}

// ContrastRow is a single line of the reporting table.
type ContrastRow struct {
	PairLabel   string  `json:"pair"`
	Response    string  `json:"response"`
	Base        Level   `json:"base"`
	Other       Level   `json:"other"`
	Estimate    float64 `json:"estimate"`
	StdErr      float64 `json:"std_err"`
	FoldChange  float64 `json:"fold_change"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	PValue      float64 `json:"p_value"`
	AdjPValue   float64 `json:"adj_p_value"`
	Significant bool    `json:"significant"`
	Log2        bool    `json:"log2"`
}

// PairLabel formats the conventional "other vs base" label.
func PairLabel(base, other Level) string {
	return fmt.Sprintf("%s vs %s", other, base)
}

// NewContrastRow flattens a corrected contrast into a reporting row.
func NewContrastRow(c CorrectedContrast) ContrastRow {
	return ContrastRow{
		PairLabel:   PairLabel(c.Base, c.Other),
		Response:    c.Response,
		Base:        c.Base,
		Other:       c.Other,
		Estimate:    c.Estimate,
		StdErr:      c.StdErr,
		FoldChange:  c.Effect.FoldChange,
		Lower:       c.Effect.Lower,
		Upper:       c.Effect.Upper,
		PValue:      c.PValue,
		AdjPValue:   c.AdjPValue,
		Significant: c.Significant,
		Log2:        c.Effect.Log2,
	}
}

// ContrastResult is everything one engine pass produces for a Level Set.
type ContrastResult struct {
	Column        string           `json:"column"`
	Levels        []Level          `json:"levels"`
	Family        ModelFamily      `json:"family"`
	Method        CorrectionMethod `json:"method"`
	Alpha         float64          `json:"alpha"`
	FitsPerformed int              `json:"fits_performed"`
	DirectedCount int              `json:"directed_count"`
	Rows          []ContrastRow    `json:"rows"`
}

// BaselineResult is the output of one baseline estimation pass.
type BaselineResult struct {
	Column        string             `json:"column"`
	Levels        []Level            `json:"levels"`
	FitsPerformed int                `json:"fits_performed"`
	Baselines     []BaselineEstimate `json:"baselines"`
}

// FitOptions are the options passed through to the fitting service.
type FitOptions struct {
	PrevalenceFilter float64  // Minimum fraction of samples where a feature is nonzero
	Winsorize        bool     // Clip the upper tail of each feature
	OutlierPct       float64  // Upper tail fraction clipped when Winsorize is set
	Responses        []string // Compositional features when the formula has no left side
}
