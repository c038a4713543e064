package fit

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// Service fits count and log-ratio models. It keeps no state between calls.
type Service struct{}

var _ contract.Fitter = &Service{} // Compile-time check

// NewService returns a fitting service.
func NewService() *Service {
	return &Service{}
}

// Fit implements the contract.Fitter interface.
func (s *Service) Fit(ctx context.Context, formula string, data *dataset.Dataset, family schema.ModelFamily, opts schema.FitOptions) (*schema.CoefficientTable, error) {
	var (
		table *schema.CoefficientTable
		err   error
	)
	switch family {
	case schema.CountFamily:
		table, err = s.fitCount(ctx, formula, data)
	case schema.LogRatioFamily:
		table, err = s.fitLogRatio(ctx, formula, data, opts)
	default:
		err = fmt.Errorf("unknown model family %q", family)
	}
	if err != nil {
		return nil, &schema.FitError{Family: family, Err: err}
	}
	return table, nil
}

func (s *Service) fitCount(ctx context.Context, formula string, data *dataset.Dataset) (*schema.CoefficientTable, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}
	if len(f.Responses) != 1 {
		return nil, fmt.Errorf("count model needs exactly one response, formula has %d", len(f.Responses))
	}
	response := f.Responses[0]
	if kind, ok := data.Kind(response); ok && kind != dataset.Numeric {
		return nil, fmt.Errorf("response %q is not numeric", response)
	}

	rows, err := data.CompleteRows(append(termColumns(f), response)...)
	if err != nil {
		return nil, err
	}
	d, err := buildDesign(data, f, rows)
	if err != nil {
		return nil, err
	}
	all, _ := data.Numeric(response)
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = all[r]
	}

	fit, err := fitCount(ctx, d, y)
	if err != nil {
		return nil, err
	}
	return &schema.CoefficientTable{
		Family:     schema.CountFamily,
		Responses:  []string{response},
		Rows:       fit.coefficients(d, response),
		DF:         fit.df,
		Dispersion: fit.dispersion,
		NObs:       d.n(),
	}, nil
}

func (s *Service) fitLogRatio(ctx context.Context, formula string, data *dataset.Dataset, opts schema.FitOptions) (*schema.CoefficientTable, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}
	features := f.Responses
	if len(features) == 0 {
		features = opts.Responses
	}
	if len(features) < 2 {
		return nil, fmt.Errorf("log-ratio model needs at least 2 features, got %d", len(features))
	}
	if f.Offset != "" {
		return nil, fmt.Errorf("log-ratio model does not take an offset")
	}
	for _, name := range features {
		if slices.Contains(f.Terms, name) {
			return nil, fmt.Errorf("%q is both feature and term", name)
		}
		if kind, ok := data.Kind(name); ok && kind != dataset.Numeric {
			return nil, fmt.Errorf("feature %q is not numeric", name)
		}
	}

	rows, err := data.CompleteRows(append(termColumns(f), features...)...)
	if err != nil {
		return nil, err
	}
	comp := &compositional{features: slices.Clone(features), counts: make([][]float64, len(rows)), rows: rows}
	for i := range rows {
		comp.counts[i] = make([]float64, len(features))
	}
	for j, name := range features {
		vals, _ := data.Numeric(name)
		for i, r := range rows {
			if vals[r] < 0 || math.IsInf(vals[r], 0) {
				return nil, fmt.Errorf("feature %q has invalid count %g in row %d", name, vals[r], r)
			}
			comp.counts[i][j] = vals[r]
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no complete rows")
	}
	if err := comp.filterPrevalence(opts.PrevalenceFilter); err != nil {
		return nil, err
	}
	comp.dropEmptyRows()
	if len(comp.rows) == 0 {
		return nil, fmt.Errorf("every sample has a zero total")
	}
	// Features that were only nonzero in dropped rows have nothing to impute from.
	comp.dropAllZero()
	if len(comp.features) < 2 {
		return nil, fmt.Errorf("log-ratio model needs at least 2 features after filtering, got %d", len(comp.features))
	}

	d, err := buildDesign(data, f, comp.rows)
	if err != nil {
		return nil, err
	}
	y := comp.clr(opts.Winsorize, opts.OutlierPct)
	fit, err := fitLogRatio(ctx, d, comp.features, y)
	if err != nil {
		return nil, err
	}
	return &schema.CoefficientTable{
		Family:     schema.LogRatioFamily,
		Responses:  slices.Clone(comp.features),
		Rows:       fit.coefficients(d),
		DF:         fit.df,
		Dispersion: 1,
		NObs:       d.n(),
	}, nil
}
