package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/huangsam/pairwise/core/fit"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func xyzTable(t *testing.T) *schema.DirectionTable {
	t.Helper()
	table, err := schema.NewDirectionTable(
		[]schema.Level{"X", "Y", "Z"},
		[]schema.Pair{{Base: "X", Other: "Y"}, {Base: "X", Other: "Z"}, {Base: "Y", Other: "Z"}},
	)
	require.NoError(t, err)
	return table
}

func contrastRequest(data *dataset.Dataset, table *schema.DirectionTable) ContrastRequest {
	return ContrastRequest{
		Data:       data,
		Formula:    "y ~ group",
		Column:     "group",
		Directions: table,
		Family:     schema.CountFamily,
		Method:     schema.FDRMethod,
		Alpha:      0.05,
	}
}

// TestEngine_ThreeLevelExample walks the {X,Y,Z} example end to end.
func TestEngine_ThreeLevelExample(t *testing.T) {
	fitter := &fakeFitter{
		column:    "group",
		responses: []string{"y"},
		means:     map[schema.Level]float64{"X": 1, "Y": 2.5, "Z": 0.2},
	}
	res, err := NewEngine(fitter, 2).Run(context.Background(), contrastRequest(levelData("X", "Y", "Z"), xyzTable(t)))
	require.NoError(t, err)

	assert.Equal(t, 3, res.FitsPerformed)
	assert.EqualValues(t, 3, fitter.calls.Load())
	assert.Equal(t, 6, res.DirectedCount)
	require.Len(t, res.Rows, 3)

	expected := []schema.Pair{{Base: "X", Other: "Y"}, {Base: "X", Other: "Z"}, {Base: "Y", Other: "Z"}}
	raw := make([]float64, len(res.Rows))
	for i, row := range res.Rows {
		assert.Equal(t, expected[i].Base, row.Base)
		assert.Equal(t, expected[i].Other, row.Other)
		assert.Equal(t, schema.PairLabel(row.Base, row.Other), row.PairLabel)
		assert.GreaterOrEqual(t, row.AdjPValue, row.PValue)
		assert.False(t, row.Log2)
		assert.InDelta(t, math.Exp(row.Estimate), row.FoldChange, 1e-12)
		raw[i] = row.PValue
	}

	assert.InDelta(t, 1.5, res.Rows[0].Estimate, 1e-12)
	assert.InDelta(t, -0.8, res.Rows[1].Estimate, 1e-12)
	assert.InDelta(t, -2.3, res.Rows[2].Estimate, 1e-12)

	// The family has three members: the smallest raw p-value is tripled.
	minIdx := 0
	for i := range raw {
		if raw[i] < raw[minIdx] {
			minIdx = i
		}
	}
	assert.InDelta(t, math.Min(1, raw[minIdx]*3), res.Rows[minIdx].AdjPValue, 1e-12)
}

func TestEngine_CountsForLargerLevelSets(t *testing.T) {
	for _, k := range []int{2, 4, 6} {
		names := []string{"L0", "L1", "L2", "L3", "L4", "L5"}[:k]
		levels := make([]schema.Level, k)
		means := make(map[schema.Level]float64, k)
		for i, n := range names {
			levels[i] = schema.Level(n)
			means[levels[i]] = float64(i) * 0.3
		}
		table, err := ResolveDirections(levels, nil, true)
		require.NoError(t, err)

		fitter := &fakeFitter{column: "group", responses: []string{"a", "b"}, means: means}
		req := contrastRequest(levelData(names...), table)
		res, err := NewEngine(fitter, 3).Run(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, k, res.FitsPerformed)
		assert.Equal(t, 2*k*(k-1), res.DirectedCount)
		require.Len(t, res.Rows, 2*k*(k-1)/2)

		seen := make(map[string]map[[2]schema.Level]bool)
		for _, row := range res.Rows {
			key := [2]schema.Level{min(row.Base, row.Other), max(row.Base, row.Other)}
			if seen[row.Response] == nil {
				seen[row.Response] = make(map[[2]schema.Level]bool)
			}
			assert.False(t, seen[row.Response][key], "pair %v duplicated", key)
			seen[row.Response][key] = true
		}
		assert.Len(t, seen["a"], k*(k-1)/2)
		assert.Len(t, seen["b"], k*(k-1)/2)
	}
}

func TestEngine_FitErrorAbortsBatch(t *testing.T) {
	data := levelData("X", "Y", "Z")
	ok := &schema.CoefficientTable{Responses: []string{"y"}}

	m := &fit.MockFitter{}
	failing := mock.MatchedBy(func(d *dataset.Dataset) bool {
		ref, _ := d.Reference("group")
		return ref == "Y"
	})
	passing := mock.MatchedBy(func(d *dataset.Dataset) bool {
		ref, _ := d.Reference("group")
		return ref != "Y"
	})
	m.On("Fit", mock.Anything, "y ~ group", failing, schema.CountFamily, mock.Anything).
		Return(nil, errors.New("IRLS did not converge"))
	m.On("Fit", mock.Anything, "y ~ group", passing, schema.CountFamily, mock.Anything).
		Return(ok, nil).Maybe()

	res, err := NewEngine(m, 1).Run(context.Background(), contrastRequest(data, xyzTable(t)))
	assert.Nil(t, res)
	var fitErr *schema.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, schema.Level("Y"), fitErr.Reference)
	assert.Equal(t, schema.CountFamily, fitErr.Family)
}

func TestEngine_FitErrorFromFakeKeepsReference(t *testing.T) {
	fitter := &fakeFitter{
		column: "group", responses: []string{"y"}, failOn: "Z",
		means: map[schema.Level]float64{"X": 0, "Y": 1, "Z": 2},
	}
	res, err := NewEngine(fitter, 3).Run(context.Background(), contrastRequest(levelData("X", "Y", "Z"), xyzTable(t)))
	assert.Nil(t, res)
	var fitErr *schema.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, schema.Level("Z"), fitErr.Reference)
}

func TestEngine_ValidatesBeforeFitting(t *testing.T) {
	m := &fit.MockFitter{}
	engine := NewEngine(m, 2)
	data := levelData("X", "Y", "Z")

	req := contrastRequest(data, nil)
	_, err := engine.Run(context.Background(), req)
	var incomplete *schema.IncompleteDirectionTableError
	require.ErrorAs(t, err, &incomplete)
	assert.Len(t, incomplete.Missing, 3)

	twoLevels, err := schema.NewDirectionTable([]schema.Level{"X", "Y"}, []schema.Pair{{Base: "X", Other: "Y"}})
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), contrastRequest(data, twoLevels))
	var invalid *schema.InvalidLevelError
	assert.ErrorAs(t, err, &invalid)

	req = contrastRequest(data, xyzTable(t))
	req.Levels = []schema.Level{"X", "Y"}
	_, err = engine.Run(context.Background(), req)
	assert.ErrorAs(t, err, &invalid)

	req = contrastRequest(data, xyzTable(t))
	req.Column = "y"
	_, err = engine.Run(context.Background(), req)
	assert.ErrorAs(t, err, &invalid)

	m.AssertNotCalled(t, "Fit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_MissingTermIsFatal(t *testing.T) {
	d, err := dataset.NewBuilder().
		Categorical("group", []string{"X", "X", "X", "Y", "Y", "Y", "Z"}).
		Numeric("y", []float64{3, 5, 4, 8, 12, 10, math.NaN()}).
		Build()
	require.NoError(t, err)

	res, err := NewEngine(fit.NewService(), 2).Run(context.Background(), contrastRequest(d, xyzTable(t)))
	assert.Nil(t, res)
	var missing *schema.MissingTermError
	assert.ErrorAs(t, err, &missing)
}

func TestEngine_RealFitterSymmetry(t *testing.T) {
	d, err := dataset.NewBuilder().
		Categorical("group", []string{"X", "X", "X", "Y", "Y", "Y", "Z", "Z", "Z"}).
		Numeric("y", []float64{10, 12, 14, 20, 24, 28, 5, 6, 7}).
		Build()
	require.NoError(t, err)
	engine := NewEngine(fit.NewService(), 3)

	forward, err := engine.Run(context.Background(), contrastRequest(d, xyzTable(t)))
	require.NoError(t, err)

	reversed, err := schema.NewDirectionTable(
		[]schema.Level{"X", "Y", "Z"},
		[]schema.Pair{{Base: "Y", Other: "X"}, {Base: "Z", Other: "X"}, {Base: "Z", Other: "Y"}},
	)
	require.NoError(t, err)
	backward, err := engine.Run(context.Background(), contrastRequest(d, reversed))
	require.NoError(t, err)

	require.Len(t, forward.Rows, 3)
	require.Len(t, backward.Rows, 3)
	for i := range forward.Rows {
		f, b := forward.Rows[i], backward.Rows[i]
		assert.Equal(t, f.Base, b.Other)
		assert.Equal(t, f.Other, b.Base)
		assert.InDelta(t, -f.Estimate, b.Estimate, 1e-6)
		assert.InDelta(t, f.StdErr, b.StdErr, 1e-6)
		assert.InDelta(t, 1/f.FoldChange, b.FoldChange, 1e-6)
		assert.InDelta(t, 1/f.Upper, b.Lower, 1e-6)
		assert.InDelta(t, f.AdjPValue, b.AdjPValue, 1e-6)
	}
	assert.InDelta(t, 2.0, forward.Rows[0].FoldChange, 1e-6)
}

func TestEngine_LogRatioFamilyReportsLog2(t *testing.T) {
	fitter := &fakeFitter{
		column: "group", responses: []string{"f1", "f2"},
		means: map[schema.Level]float64{"X": 0, "Y": 1, "Z": -1},
	}
	req := contrastRequest(levelData("X", "Y", "Z"), xyzTable(t))
	req.Family = schema.LogRatioFamily
	req.Scope = schema.LevelSetScope
	res, err := NewEngine(fitter, 1).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Rows, 6)
	for _, row := range res.Rows {
		assert.True(t, row.Log2)
		assert.Equal(t, row.Estimate, row.FoldChange)
	}
}

func TestEngine_Baselines(t *testing.T) {
	fitter := &fakeFitter{
		column: "group", responses: []string{"y"},
		means: map[schema.Level]float64{"X": 1, "Y": 2, "Z": 3},
	}
	res, err := NewEngine(fitter, 2).Baselines(context.Background(), BaselineRequest{
		Data: levelData("X", "Y", "Z"), Formula: "y ~ group", Column: "group",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FitsPerformed)
	require.Len(t, res.Baselines, 3)
	for i, b := range res.Baselines {
		assert.Equal(t, res.Levels[i], b.Base)
		assert.InDelta(t, math.Exp(b.Estimate), b.Derived.Value, 1e-12)
		assert.Less(t, b.Derived.Lower, b.Derived.Value)
		assert.Less(t, b.Derived.Value, b.Derived.Upper)
	}
	assert.InDelta(t, 2.0, res.Baselines[1].Estimate, 1e-12)
}

func TestEstimateBaselines_RealFitter(t *testing.T) {
	d, err := dataset.NewBuilder().
		Categorical("group", []string{"X", "X", "X", "Y", "Y", "Y"}).
		Numeric("y", []float64{10, 12, 14, 20, 24, 28}).
		Build()
	require.NoError(t, err)

	baselines, err := EstimateBaselines(context.Background(), fit.NewService(), d, "y ~ group", "group", nil, schema.FitOptions{})
	require.NoError(t, err)
	require.Len(t, baselines, 2)
	assert.InDelta(t, 12, baselines[0].Derived.Value, 1e-5)
	assert.InDelta(t, 24, baselines[1].Derived.Value, 1e-5)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fitter := &fakeFitter{column: "group", responses: []string{"y"}, means: map[schema.Level]float64{}}
	_, err := NewEngine(fitter, 1).Run(ctx, contrastRequest(levelData("X", "Y", "Z"), xyzTable(t)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveDirections(t *testing.T) {
	levels := []schema.Level{"X", "Y", "Z"}

	table, err := ResolveDirections(levels, nil, true)
	require.NoError(t, err)
	assert.Equal(t, schema.OrderedDirections(levels), table.Pairs())

	explicit := []schema.Pair{{Base: "Z", Other: "X"}, {Base: "Y", Other: "X"}, {Base: "Z", Other: "Y"}}
	table, err = ResolveDirections(levels, explicit, true)
	require.NoError(t, err)
	assert.Equal(t, explicit, table.Pairs())

	_, err = ResolveDirections(levels, nil, false)
	var incomplete *schema.IncompleteDirectionTableError
	assert.ErrorAs(t, err, &incomplete)
}
