package core

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// fakeFitter derives a coefficient table from fixed per-level means, so that
// every refit is consistent with every other one.
type fakeFitter struct {
	column    string
	responses []string
	means     map[schema.Level]float64
	failOn    schema.Level
	calls     atomic.Int32
}

func (f *fakeFitter) Fit(_ context.Context, _ string, data *dataset.Dataset, family schema.ModelFamily, _ schema.FitOptions) (*schema.CoefficientTable, error) {
	f.calls.Add(1)
	levels := data.Levels(f.column)
	ref := levels[0]
	if ref == f.failOn {
		return nil, &schema.FitError{Family: family, Err: errors.New("singular fit")}
	}
	table := &schema.CoefficientTable{Family: family, Responses: f.responses, DF: 10, Dispersion: 1}
	for r, resp := range f.responses {
		shift := float64(r) * 0.5
		table.Rows = append(table.Rows, schema.Coefficient{
			Response: resp, Term: schema.InterceptTerm, Intercept: true,
			Estimate: f.means[ref] + shift, StdErr: 0.05,
		})
		for _, l := range levels[1:] {
			est := f.means[l] - f.means[ref]
			table.Rows = append(table.Rows, schema.Coefficient{
				Response: resp, Term: f.column + string(l), Column: f.column, Level: l,
				Estimate: est, StdErr: 0.2, Statistic: est / 0.2,
				PValue: math.Min(1, math.Exp(-math.Abs(est)*(1+shift))),
			})
		}
	}
	return table, nil
}

func levelData(levels ...string) *dataset.Dataset {
	var values []string
	var counts []float64
	for i, l := range levels {
		values = append(values, l, l)
		counts = append(counts, float64(i+1), float64(i+2))
	}
	d, err := dataset.NewBuilder().
		Categorical("group", values).
		Numeric("y", counts).
		Build()
	if err != nil {
		panic(err)
	}
	return d
}
