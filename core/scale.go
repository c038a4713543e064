package core

import (
	"fmt"
	"math"

	"github.com/huangsam/pairwise/schema"
)

// ToEffectScale converts a record's estimate to its reporting scale.
// Log-scale estimates are exponentiated into fold changes. Log2-scale estimates
// are already log2 fold changes and only get an interval.
func ToEffectScale(record schema.ContrastRecord, scale schema.LinkScale) (schema.EffectScale, error) {
	half := schema.NormalQuantile975 * record.StdErr
	switch scale {
	case schema.LogScale:
		return schema.EffectScale{
			FoldChange: math.Exp(record.Estimate),
			Lower:      math.Exp(record.Estimate - half),
			Upper:      math.Exp(record.Estimate + half),
		}, nil
	case schema.Log2Scale:
		return schema.EffectScale{
			FoldChange: record.Estimate,
			Lower:      record.Estimate - half,
			Upper:      record.Estimate + half,
			Log2:       true,
		}, nil
	default:
		return schema.EffectScale{}, fmt.Errorf("unknown link scale %q", scale)
	}
}

// applyScale fills the Effect of every corrected contrast in place.
func applyScale(corrected []schema.CorrectedContrast, scale schema.LinkScale) error {
	for i := range corrected {
		effect, err := ToEffectScale(corrected[i].ContrastRecord, scale)
		if err != nil {
			return err
		}
		corrected[i].Effect = effect
	}
	return nil
}
