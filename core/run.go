package core

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/huangsam/pairwise/core/fit"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// LoadData reads the data file of cfg. When cfg.Standardize is set, the numeric
// covariates of the formula are centered and scaled over the complete-case rows
// of the model, so that baselines sit at the covariate means of the fitted rows.
// Responses, offsets and the contrast column are never touched.
func LoadData(cfg *contract.Config) (*dataset.Dataset, error) {
	data, err := dataset.LoadFile(cfg.DataPath, dataset.LoadOptions{Categorical: cfg.Categorical})
	if err != nil {
		return nil, err
	}
	if !cfg.Standardize {
		return data, nil
	}
	f, err := fit.ParseFormula(cfg.Formula)
	if err != nil {
		return nil, err
	}
	covariates := numericCovariates(data, f, cfg.Column)
	if len(covariates) == 0 {
		return data, nil
	}
	rows, err := data.CompleteRows(modelColumns(data, f, cfg.FitOptions.Responses)...)
	if err != nil {
		return nil, err
	}
	return data.StandardizeRows(rows, covariates...)
}

// numericCovariates lists the numeric right-hand terms of f other than column.
func numericCovariates(data *dataset.Dataset, f *fit.Formula, column string) []string {
	var out []string
	for _, term := range f.Terms {
		if term == column || slices.Contains(out, term) {
			continue
		}
		if kind, ok := data.Kind(term); ok && kind == dataset.Numeric {
			out = append(out, term)
		}
	}
	return out
}

// modelColumns lists the columns of data a fit of f reads. Unknown names are
// left for the fitter to report.
func modelColumns(data *dataset.Dataset, f *fit.Formula, responses []string) []string {
	var out []string
	for _, name := range append(f.Columns(), responses...) {
		if _, ok := data.Kind(name); ok && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// runParams is the config snapshot stored with every run.
func runParams(cfg *contract.Config, command string) map[string]any {
	levels := make([]string, len(cfg.Levels))
	for i, l := range cfg.Levels {
		levels[i] = string(l)
	}
	return map[string]any{
		"command":   command,
		"data":      filepath.Base(cfg.DataPath),
		"formula":   cfg.Formula,
		"column":    cfg.Column,
		"levels":    levels,
		"family":    string(cfg.Family),
		"method":    string(cfg.Method),
		"scope":     string(cfg.Scope),
		"alpha":     cfg.Alpha,
		"workers":   cfg.Workers,
		"pairs":     len(cfg.Directions),
		"auto_dirs": cfg.AutoDirections,
	}
}

// beginRun starts run tracking when a store is configured. Tracking failures never fail the run.
func beginRun(mgr contract.RunManager, cfg *contract.Config, command string) (contract.RunStore, int64) {
	if mgr == nil {
		return nil, 0
	}
	store := mgr.GetRunStore()
	if store == nil {
		return nil, 0
	}
	runID, err := store.BeginRun(time.Now(), runParams(cfg, command))
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return nil, 0
	}
	if runID <= 0 {
		return nil, 0
	}
	return store, runID
}

// GetContrastResults loads the data of cfg, runs the contrast engine and records
// the run when a run store is configured.
func GetContrastResults(ctx context.Context, cfg *contract.Config, fitter contract.Fitter, mgr contract.RunManager) (*schema.ContrastResult, time.Duration, error) {
	start := time.Now()
	data, err := LoadData(cfg)
	if err != nil {
		return nil, 0, err
	}
	return RunContrasts(ctx, cfg, data, fitter, mgr, start)
}

// RunContrasts runs the contrast engine on an already loaded data set.
func RunContrasts(ctx context.Context, cfg *contract.Config, data *dataset.Dataset, fitter contract.Fitter, mgr contract.RunManager, start time.Time) (*schema.ContrastResult, time.Duration, error) {
	levels, err := resolveLevels(data, cfg.Column, cfg.Levels)
	if err != nil {
		return nil, 0, err
	}
	directions, err := ResolveDirections(levels, cfg.Directions, cfg.AutoDirections)
	if err != nil {
		return nil, 0, err
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogRunHeader(cfg, len(levels), directions.Len())
	}

	store, runID := beginRun(mgr, cfg, "contrasts")
	result, err := NewEngine(fitter, cfg.Workers).Run(ctx, ContrastRequest{
		Data:       data,
		Formula:    cfg.Formula,
		Column:     cfg.Column,
		Levels:     levels,
		Directions: directions,
		Family:     cfg.Family,
		Method:     cfg.Method,
		Scope:      cfg.Scope,
		Alpha:      cfg.Alpha,
		Options:    cfg.FitOptions,
	})
	if err != nil {
		if store != nil {
			endRun(store, runID, 0)
		}
		return nil, 0, fmt.Errorf("contrast run failed: %w", err)
	}

	if store != nil {
		if err := store.RecordContrasts(runID, result.Rows); err != nil {
			contract.LogWarn("Failed to record contrasts", err)
		}
		endRun(store, runID, len(result.Rows))
	}
	return result, time.Since(start), nil
}

// GetBaselineResults loads the data of cfg, estimates one baseline per level and
// records the run when a run store is configured.
func GetBaselineResults(ctx context.Context, cfg *contract.Config, fitter contract.Fitter, mgr contract.RunManager) (*schema.BaselineResult, time.Duration, error) {
	start := time.Now()
	data, err := LoadData(cfg)
	if err != nil {
		return nil, 0, err
	}
	return RunBaselines(ctx, cfg, data, fitter, mgr, start)
}

// RunBaselines estimates baselines on an already loaded data set.
func RunBaselines(ctx context.Context, cfg *contract.Config, data *dataset.Dataset, fitter contract.Fitter, mgr contract.RunManager, start time.Time) (*schema.BaselineResult, time.Duration, error) {
	levels, err := resolveLevels(data, cfg.Column, cfg.Levels)
	if err != nil {
		return nil, 0, err
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogRunHeader(cfg, len(levels), 0)
	}

	store, runID := beginRun(mgr, cfg, "baselines")
	result, err := NewEngine(fitter, cfg.Workers).Baselines(ctx, BaselineRequest{
		Data:    data,
		Formula: cfg.Formula,
		Column:  cfg.Column,
		Levels:  levels,
		Options: cfg.FitOptions,
	})
	if err != nil {
		if store != nil {
			endRun(store, runID, 0)
		}
		return nil, 0, fmt.Errorf("baseline run failed: %w", err)
	}

	if store != nil {
		if err := store.RecordBaselines(runID, result.Baselines); err != nil {
			contract.LogWarn("Failed to record baselines", err)
		}
		endRun(store, runID, 0)
	}
	return result, time.Since(start), nil
}

func endRun(store contract.RunStore, runID int64, total int) {
	if err := store.EndRun(runID, time.Now(), total); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
