package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pairwise/core/fit"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/internal/runstore"
	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const runCSV = `group,dose,y
X,1,10
X,2,14
Y,3,20
Y,4,28
Z,5,2
Z,6,3
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runConfig(path string) *contract.Config {
	return &contract.Config{
		DataPath: path,
		Formula:  "y ~ group",
		Column:   "group",
		Directions: []schema.Pair{
			{Base: "X", Other: "Y"}, {Base: "X", Other: "Z"}, {Base: "Y", Other: "Z"},
		},
		Family:  schema.CountFamily,
		Method:  schema.FDRMethod,
		Scope:   schema.ResponseScope,
		Alpha:   0.05,
		Workers: 2,
	}
}

func xyzFitter() *fakeFitter {
	return &fakeFitter{
		column:    "group",
		responses: []string{"y"},
		means:     map[schema.Level]float64{"X": 1, "Y": 2.5, "Z": 0.2},
	}
}


func TestLoadData_Standardize(t *testing.T) {
	cfg := runConfig(writeCSV(t, runCSV))
	cfg.Formula = "y ~ group + dose"

	raw, err := LoadData(cfg)
	require.NoError(t, err)
	dose, err := raw.Numeric("dose")
	require.NoError(t, err)
	assert.Equal(t, 1.0, dose[0])

	cfg.Standardize = true
	data, err := LoadData(cfg)
	require.NoError(t, err)
	dose, err = data.Numeric("dose")
	require.NoError(t, err)
	assert.InDelta(t, -dose[5], dose[0], 1e-12, "dose is centered")

	y, err := data.Numeric("y")
	require.NoError(t, err)
	assert.Equal(t, 10.0, y[0], "responses are never standardized")
}

func TestLoadData_Errors(t *testing.T) {
	cfg := runConfig(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := LoadData(cfg)
	assert.Error(t, err)

	cfg = runConfig(writeCSV(t, runCSV))
	cfg.Formula = "y group"
	cfg.Standardize = true
	_, err = LoadData(cfg)
	assert.Error(t, err)
}

func TestNumericCovariates(t *testing.T) {
	d, err := dataset.NewBuilder().
		Categorical("group", []string{"a", "b"}).
		Categorical("batch", []string{"1", "2"}).
		Numeric("age", []float64{30, 40}).
		Numeric("y", []float64{1, 2}).
		Build()
	require.NoError(t, err)

	f, err := fit.ParseFormula("y ~ group + age + batch")
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, numericCovariates(d, f, "group"))
}

func TestLoadData_StandardizesOverCompleteRows(t *testing.T) {
	// The last row is dropped by the fit because y is missing.
	cfg := runConfig(writeCSV(t, runCSV+"Z,100,NA\n"))
	cfg.Formula = "y ~ group + dose"
	cfg.Standardize = true

	data, err := LoadData(cfg)
	require.NoError(t, err)
	dose, err := data.Numeric("dose")
	require.NoError(t, err)
	require.Len(t, dose, 7)

	var sum float64
	for _, v := range dose[:6] {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12, "dose is centered over the fitted rows")
	assert.Greater(t, dose[6], dose[5], "incomplete rows are still rescaled")
}

func TestModelColumns(t *testing.T) {
	d, err := dataset.NewBuilder().
		Categorical("group", []string{"a", "b"}).
		Numeric("depth", []float64{10, 20}).
		Numeric("f1", []float64{1, 2}).
		Build()
	require.NoError(t, err)

	f, err := fit.ParseFormula("~ group + offset(log(depth))")
	require.NoError(t, err)
	assert.Equal(t, []string{"group", "depth", "f1"}, modelColumns(d, f, []string{"f1", "f2"}))
}

func TestGetContrastResults_RecordsRun(t *testing.T) {
	cfg := runConfig(writeCSV(t, runCSV))
	store := &runstore.MockRunStore{}
	mgr := &runstore.MockRunManager{}
	mgr.On("GetRunStore").Return(store)
	store.On("BeginRun", mock.AnythingOfType("time.Time"), mock.MatchedBy(func(p map[string]any) bool {
		return p["command"] == "contrasts" && p["column"] == "group"
	})).Return(int64(7), nil)
	store.On("RecordContrasts", int64(7), mock.MatchedBy(func(rows []schema.ContrastRow) bool {
		return len(rows) == 3
	})).Return(nil)
	store.On("EndRun", int64(7), mock.AnythingOfType("time.Time"), 3).Return(nil)

	result, duration, err := GetContrastResults(WithSuppressHeader(context.Background()), cfg, xyzFitter(), mgr)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FitsPerformed)
	assert.Len(t, result.Rows, 3)
	assert.Greater(t, duration, time.Duration(0))
	store.AssertExpectations(t)
}

func TestRunContrasts_TrackingFailureIsNotFatal(t *testing.T) {
	cfg := runConfig("")
	store := &runstore.MockRunStore{}
	mgr := &runstore.MockRunManager{}
	mgr.On("GetRunStore").Return(store)
	store.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	result, _, err := RunContrasts(WithSuppressHeader(context.Background()), cfg, levelData("X", "Y", "Z"), xyzFitter(), mgr, time.Now())
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
	store.AssertNotCalled(t, "RecordContrasts", mock.Anything, mock.Anything)
}

func TestRunContrasts_FitErrorEndsRun(t *testing.T) {
	cfg := runConfig("")
	fitter := xyzFitter()
	fitter.failOn = "Z"

	store := &runstore.MockRunStore{}
	mgr := &runstore.MockRunManager{}
	mgr.On("GetRunStore").Return(store)
	store.On("BeginRun", mock.Anything, mock.Anything).Return(int64(3), nil)
	store.On("EndRun", int64(3), mock.Anything, 0).Return(nil)

	result, _, err := RunContrasts(WithSuppressHeader(context.Background()), cfg, levelData("X", "Y", "Z"), fitter, mgr, time.Now())
	assert.Nil(t, result)
	var fitErr *schema.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, schema.Level("Z"), fitErr.Reference)
	store.AssertNotCalled(t, "RecordContrasts", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestRunContrasts_Validation(t *testing.T) {
	fitter := xyzFitter()

	cfg := runConfig("")
	cfg.Directions = cfg.Directions[:2]
	_, _, err := RunContrasts(WithSuppressHeader(context.Background()), cfg, levelData("X", "Y", "Z"), fitter, nil, time.Now())
	var incomplete *schema.IncompleteDirectionTableError
	require.ErrorAs(t, err, &incomplete)

	cfg = runConfig("")
	cfg.Column = "y"
	_, _, err = RunContrasts(WithSuppressHeader(context.Background()), cfg, levelData("X", "Y", "Z"), fitter, nil, time.Now())
	var invalid *schema.InvalidLevelError
	require.ErrorAs(t, err, &invalid)

	assert.EqualValues(t, 0, fitter.calls.Load(), "validation happens before any fit")
}

func TestRunContrasts_AutoDirections(t *testing.T) {
	cfg := runConfig("")
	cfg.Directions = nil
	cfg.AutoDirections = true

	result, _, err := RunContrasts(WithSuppressHeader(context.Background()), cfg, levelData("X", "Y", "Z"), xyzFitter(), nil, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, schema.Level("X"), result.Rows[0].Base)
	assert.Equal(t, schema.Level("Y"), result.Rows[0].Other)
}

func TestGetBaselineResults_RecordsRun(t *testing.T) {
	cfg := runConfig(writeCSV(t, runCSV))
	store := &runstore.MockRunStore{}
	mgr := &runstore.MockRunManager{}
	mgr.On("GetRunStore").Return(store)
	store.On("BeginRun", mock.Anything, mock.MatchedBy(func(p map[string]any) bool {
		return p["command"] == "baselines"
	})).Return(int64(2), nil)
	store.On("RecordBaselines", int64(2), mock.MatchedBy(func(b []schema.BaselineEstimate) bool {
		return len(b) == 3
	})).Return(nil)
	store.On("EndRun", int64(2), mock.Anything, 0).Return(nil)

	result, _, err := GetBaselineResults(WithSuppressHeader(context.Background()), cfg, xyzFitter(), mgr)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FitsPerformed)
	require.Len(t, result.Baselines, 3)
	store.AssertExpectations(t)
}

func TestRunBaselines_NoStore(t *testing.T) {
	mgr := &runstore.MockRunManager{}
	mgr.On("GetRunStore").Return(nil)

	result, _, err := RunBaselines(WithSuppressHeader(context.Background()), runConfig(""), levelData("X", "Y"), xyzFitter(), mgr, time.Now())
	require.NoError(t, err)
	assert.Len(t, result.Baselines, 2)
}
