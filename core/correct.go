package core

import (
	"fmt"

	"github.com/huangsam/pairwise/core/algo"
	"github.com/huangsam/pairwise/schema"
)

// Correct adjusts the p-values of a non-redundant set with each response as its own family.
func Correct(set NonRedundantSet, method schema.CorrectionMethod, alpha float64) ([]schema.CorrectedContrast, error) {
	return CorrectScoped(set, method, schema.ResponseScope, alpha)
}

// CorrectScoped adjusts the p-values of a non-redundant set. With ResponseScope every
// response is a separate family; with LevelSetScope the whole set is one family.
// The output keeps the order of the set.
func CorrectScoped(set NonRedundantSet, method schema.CorrectionMethod, scope schema.CorrectionScope, alpha float64) ([]schema.CorrectedContrast, error) {
	adjust, err := adjuster(method)
	if err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("alpha must be between 0 and 1 (received %g)", alpha)
	}

	records := set.records
	raw := make([]float64, len(records))
	for i, r := range records {
		raw[i] = r.PValue
	}
	if err := algo.ValidatePValues(raw); err != nil {
		return nil, err
	}

	var families [][]int
	switch scope {
	case schema.ResponseScope:
		byResponse := make(map[string][]int, len(set.responses))
		for i, r := range records {
			byResponse[r.Response] = append(byResponse[r.Response], i)
		}
		for _, resp := range set.responses {
			families = append(families, byResponse[resp])
		}
	case schema.LevelSetScope:
		all := make([]int, len(records))
		for i := range all {
			all[i] = i
		}
		families = append(families, all)
	default:
		return nil, fmt.Errorf("unknown correction scope %q", scope)
	}

	out := make([]schema.CorrectedContrast, len(records))
	for _, family := range families {
		p := make([]float64, len(family))
		for j, i := range family {
			p[j] = raw[i]
		}
		adj := adjust(p)
		for j, i := range family {
			out[i] = schema.CorrectedContrast{
				ContrastRecord: records[i],
				AdjPValue:      adj[j],
				Significant:    adj[j] <= alpha,
			}
		}
	}
	return out, nil
}

func adjuster(method schema.CorrectionMethod) (func([]float64) []float64, error) {
	switch method {
	case schema.FDRMethod:
		return algo.BenjaminiHochberg, nil
	case schema.HolmMethod:
		return algo.Holm, nil
	case schema.BonferroniMethod:
		return algo.Bonferroni, nil
	case schema.NoneMethod:
		return func(p []float64) []float64 { return append([]float64(nil), p...) }, nil
	default:
		return nil, fmt.Errorf("unknown correction method %q", method)
	}
}
