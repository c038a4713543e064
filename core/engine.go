// Package core has the contrast engine: releveling, extraction, selection, correction and scaling.
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/huangsam/pairwise/core/algo"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
	"golang.org/x/sync/errgroup"
)

// Engine runs pairwise contrasts and baseline estimates over one Level Set.
type Engine struct {
	fitter  contract.Fitter
	workers int
}

// NewEngine returns an engine that runs at most workers fits at once.
func NewEngine(fitter contract.Fitter, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{fitter: fitter, workers: workers}
}

// ContrastRequest describes one contrast run.
type ContrastRequest struct {
	Data       *dataset.Dataset
	Formula    string
	Column     string
	Levels     []schema.Level // Empty means the column's levels in data order
	Directions *schema.DirectionTable
	Family     schema.ModelFamily
	Method     schema.CorrectionMethod
	Scope      schema.CorrectionScope
	Alpha      float64
	Options    schema.FitOptions
}

// BaselineRequest describes one baseline run. The count family is always used.
type BaselineRequest struct {
	Data    *dataset.Dataset
	Formula string
	Column  string
	Levels  []schema.Level
	Options schema.FitOptions
}

// Run fits the model once per level, extracts the directed contrasts, keeps the
// assigned direction of every pair, corrects and transforms them.
// Any error aborts the run and no rows are returned.
func (e *Engine) Run(ctx context.Context, req ContrastRequest) (*schema.ContrastResult, error) {
	levels, err := resolveLevels(req.Data, req.Column, req.Levels)
	if err != nil {
		return nil, err
	}
	if err := checkDirections(req.Directions, levels); err != nil {
		return nil, err
	}
	if req.Scope == "" {
		req.Scope = schema.ResponseScope
	}
	if _, ok := schema.ValidCorrectionMethods[req.Method]; !ok {
		return nil, fmt.Errorf("unknown correction method %q", req.Method)
	}

	tables, fits, err := e.fitEachReference(ctx, req.Data, req.Formula, req.Column, levels, req.Family, req.Options)
	if err != nil {
		return nil, err
	}

	var directed []schema.ContrastRecord
	for i, ref := range levels {
		records, err := ExtractContrasts(tables[i], req.Column, ref, levels)
		if err != nil {
			return nil, err
		}
		directed = append(directed, records...)
	}

	set, err := SelectNonRedundant(directed, req.Directions)
	if err != nil {
		return nil, err
	}
	corrected, err := CorrectScoped(set, req.Method, req.Scope, req.Alpha)
	if err != nil {
		return nil, err
	}
	if err := applyScale(corrected, req.Family.Scale()); err != nil {
		return nil, err
	}

	rows := make([]schema.ContrastRow, len(corrected))
	for i, c := range corrected {
		rows[i] = schema.NewContrastRow(c)
	}
	return &schema.ContrastResult{
		Column:        req.Column,
		Levels:        levels,
		Family:        req.Family,
		Method:        req.Method,
		Alpha:         req.Alpha,
		FitsPerformed: fits,
		DirectedCount: len(directed),
		Rows:          rows,
	}, nil
}

// Baselines fits the count model once per level and reports each level's intercept.
func (e *Engine) Baselines(ctx context.Context, req BaselineRequest) (*schema.BaselineResult, error) {
	levels, err := resolveLevels(req.Data, req.Column, req.Levels)
	if err != nil {
		return nil, err
	}
	tables, fits, err := e.fitEachReference(ctx, req.Data, req.Formula, req.Column, levels, schema.CountFamily, req.Options)
	if err != nil {
		return nil, err
	}

	var baselines []schema.BaselineEstimate
	for i, ref := range levels {
		for _, resp := range tables[i].Responses {
			row, err := ExtractIntercept(tables[i], resp, ref)
			if err != nil {
				return nil, err
			}
			baselines = append(baselines, baselineFromIntercept(row, ref))
		}
	}
	return &schema.BaselineResult{
		Column:        req.Column,
		Levels:        levels,
		FitsPerformed: fits,
		Baselines:     baselines,
	}, nil
}

// fitEachReference runs one fit per level, each on its own releveled view.
// Results are stored by level index. The first failure cancels the remaining fits.
func (e *Engine) fitEachReference(ctx context.Context, data *dataset.Dataset, formula, column string, levels []schema.Level, family schema.ModelFamily, opts schema.FitOptions) ([]*schema.CoefficientTable, int, error) {
	if e.fitter == nil {
		return nil, 0, errors.New("no fitter configured")
	}
	views := make([]*dataset.Dataset, len(levels))
	for i, ref := range levels {
		view, err := Relevel(data, column, ref, ReferenceFirst(levels, ref))
		if err != nil {
			return nil, 0, err
		}
		views[i] = view
	}

	tables := make([]*schema.CoefficientTable, len(levels))
	var fits atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, ref := range levels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, err := e.fitter.Fit(gctx, formula, views[i], family, opts)
			if err != nil {
				var fitErr *schema.FitError
				if errors.As(err, &fitErr) {
					if fitErr.Reference == "" {
						return &schema.FitError{Family: fitErr.Family, Reference: ref, Err: fitErr.Err}
					}
					return err
				}
				return &schema.FitError{Family: family, Reference: ref, Err: err}
			}
			fits.Add(1)
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, int(fits.Load()), err
	}
	return tables, int(fits.Load()), nil
}

// resolveLevels returns the Level Set of column. requested, when given, must be a
// reordering of the levels present in data.
func resolveLevels(data *dataset.Dataset, column string, requested []schema.Level) ([]schema.Level, error) {
	if data == nil {
		return nil, errors.New("no dataset")
	}
	kind, ok := data.Kind(column)
	if !ok {
		return nil, &schema.InvalidLevelError{Column: column, Reason: "column not found"}
	}
	if kind != dataset.Categorical {
		return nil, &schema.InvalidLevelError{Column: column, Reason: "column is not categorical"}
	}
	present := data.Levels(column)
	if len(requested) == 0 {
		requested = present
	}
	if err := schema.ValidateLevelSet(column, requested); err != nil {
		return nil, err
	}
	for _, l := range requested {
		if !slices.Contains(present, l) {
			return nil, &schema.InvalidLevelError{Column: column, Level: l, Reason: "level does not occur in the data"}
		}
	}
	if len(requested) != len(present) {
		var unlisted []schema.Level
		for _, l := range present {
			if !slices.Contains(requested, l) {
				unlisted = append(unlisted, l)
			}
		}
		return nil, &schema.InvalidLevelError{Column: column, Reason: fmt.Sprintf("levels %v occur in the data but are not in the level set", unlisted)}
	}
	return slices.Clone(requested), nil
}

// checkDirections verifies the table covers exactly the given levels.
func checkDirections(table *schema.DirectionTable, levels []schema.Level) error {
	if table == nil {
		_, err := schema.NewDirectionTable(levels, nil)
		return err
	}
	tl := table.Levels()
	if len(tl) != len(levels) {
		return &schema.InvalidLevelError{Reason: fmt.Sprintf("direction table covers %d levels, level set has %d", len(tl), len(levels))}
	}
	for _, l := range levels {
		if !slices.Contains(tl, l) {
			return &schema.InvalidLevelError{Level: l, Reason: "level is not covered by the direction table"}
		}
	}
	if table.Len() != algo.Binomial2(len(levels)) {
		return &schema.IncompleteDirectionTableError{}
	}
	return nil
}

// ResolveDirections builds the direction table for levels. Explicit pairs always win.
// With no pairs, auto selects the level-order directions; otherwise the table is
// reported incomplete.
func ResolveDirections(levels []schema.Level, pairs []schema.Pair, auto bool) (*schema.DirectionTable, error) {
	if len(pairs) == 0 && auto {
		pairs = schema.OrderedDirections(levels)
	}
	return schema.NewDirectionTable(levels, pairs)
}
