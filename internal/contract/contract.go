// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// Fitter is the fitting service the contrast engine drives.
// Each call must be independent of every previous call; implementations
// keep no fit cache and no carried-over level encoding.
type Fitter interface {
	// Fit fits formula on data and returns one coefficient row per model term.
	// Failures are reported as *schema.FitError.
	Fit(ctx context.Context, formula string, data *dataset.Dataset, family schema.ModelFamily, opts schema.FitOptions) (*schema.CoefficientTable, error)
}

// RunManager defines the interface for reaching the run store.
// This allows the persistence layer to be mocked for testing.
type RunManager interface {
	GetRunStore() RunStore
}

// RunStore defines the interface for tracking contrast runs and their results.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalContrasts int) error

	// RecordContrasts stores the reporting rows of a run
	RecordContrasts(runID int64, rows []schema.ContrastRow) error

	// RecordBaselines stores the baseline estimates of a run
	RecordBaselines(runID int64, baselines []schema.BaselineEstimate) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every recorded run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllContrasts returns every recorded contrast row
	GetAllContrasts() ([]schema.ContrastRunRecord, error)

	// GetAllBaselines returns every recorded baseline estimate
	GetAllBaselines() ([]schema.BaselineRunRecord, error)

	// Close closes the underlying connection
	Close() error
}
