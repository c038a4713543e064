package core

import (
	"slices"

	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
)

// Relevel returns a view of data whose categorical column uses order, with ref as
// the reference category. The input dataset is never modified.
func Relevel(data *dataset.Dataset, column string, ref schema.Level, order []schema.Level) (*dataset.Dataset, error) {
	kind, ok := data.Kind(column)
	if !ok {
		return nil, &schema.InvalidLevelError{Column: column, Reason: "column not found"}
	}
	if kind != dataset.Categorical {
		return nil, &schema.InvalidLevelError{Column: column, Reason: "column is not categorical"}
	}
	current := data.Levels(column)
	if !slices.Contains(current, ref) {
		return nil, &schema.InvalidLevelError{Column: column, Level: ref, Reason: "reference is not a level of the column"}
	}
	if len(order) == 0 || order[0] != ref {
		return nil, &schema.InvalidLevelError{Column: column, Level: ref, Reason: "ordering must start with the reference level"}
	}
	if len(order) != len(current) {
		return nil, &schema.InvalidLevelError{Column: column, Reason: "ordering is not a permutation of the column levels"}
	}
	seen := make(map[schema.Level]struct{}, len(order))
	for _, l := range order {
		if !slices.Contains(current, l) {
			return nil, &schema.InvalidLevelError{Column: column, Level: l, Reason: "ordering lists an unknown level"}
		}
		if _, dup := seen[l]; dup {
			return nil, &schema.InvalidLevelError{Column: column, Level: l, Reason: "ordering lists a level twice"}
		}
		seen[l] = struct{}{}
	}

	view, err := data.WithLevels(column, order)
	if err != nil {
		return nil, &schema.InvalidLevelError{Column: column, Level: ref, Reason: err.Error()}
	}
	return view, nil
}

// ReferenceFirst returns levels with ref moved to the front. The remaining
// levels keep their relative order.
func ReferenceFirst(levels []schema.Level, ref schema.Level) []schema.Level {
	out := make([]schema.Level, 0, len(levels))
	out = append(out, ref)
	for _, l := range levels {
		if l != ref {
			out = append(out, l)
		}
	}
	return out
}
