package core

import (
	"context"
	"math"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// EstimateBaselines refits the count model once per level with that level as the
// reference and reports each intercept on the response scale.
// Covariates are used as given; standardize them first to get estimates at the covariate means.
func EstimateBaselines(ctx context.Context, fitter contract.Fitter, data *dataset.Dataset, formula, column string, levels []schema.Level, opts schema.FitOptions) ([]schema.BaselineEstimate, error) {
	res, err := NewEngine(fitter, len(levels)).Baselines(ctx, BaselineRequest{
		Data:    data,
		Formula: formula,
		Column:  column,
		Levels:  levels,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}
	return res.Baselines, nil
}

// baselineFromIntercept applies the log rule to an intercept row.
func baselineFromIntercept(row schema.Coefficient, ref schema.Level) schema.BaselineEstimate {
	half := schema.NormalQuantile975 * row.StdErr
	return schema.BaselineEstimate{
		Response: row.Response,
		Base:     ref,
		Estimate: row.Estimate,
		StdErr:   row.StdErr,
		Derived: schema.BaselineDerived{
			Value: math.Exp(row.Estimate),
			Lower: math.Exp(row.Estimate - half),
			Upper: math.Exp(row.Estimate + half),
		},
	}
}
