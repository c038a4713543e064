package core

import (
	"fmt"
	"slices"

	"github.com/huangsam/pairwise/schema"
)

// ExtractContrasts turns the coefficient table of a fit referenced at ref into
// one ContrastRecord per non-reference level of column and response.
// Terms are matched through the table's Column and Level mapping.
func ExtractContrasts(table *schema.CoefficientTable, column string, ref schema.Level, levels []schema.Level) ([]schema.ContrastRecord, error) {
	if table == nil {
		return nil, &schema.MissingTermError{Column: column, Reference: ref, Want: len(levels) - 1, Detail: "no coefficient table"}
	}
	want := len(levels) - 1
	byResponse := make(map[string][]schema.ContrastRecord, len(table.Responses))
	for _, row := range table.Rows {
		if row.Intercept || row.Column != column || row.Level == ref {
			continue
		}
		if !slices.Contains(levels, row.Level) {
			return nil, &schema.MissingTermError{
				Column: column, Response: row.Response, Reference: ref, Want: want,
				Detail: fmt.Sprintf("term %q maps to level %q outside the level set", row.Term, row.Level),
			}
		}
		byResponse[row.Response] = append(byResponse[row.Response], schema.ContrastRecord{
			Response:  row.Response,
			Other:     row.Level,
			Base:      ref,
			Estimate:  row.Estimate,
			StdErr:    row.StdErr,
			Statistic: row.Statistic,
			PValue:    row.PValue,
		})
	}

	var out []schema.ContrastRecord
	for _, resp := range table.Responses {
		records := byResponse[resp]
		detail := missingLevels(records, levels, ref)
		if len(records) != want || detail != "" {
			return nil, &schema.MissingTermError{
				Column: column, Response: resp, Reference: ref, Want: want, Got: len(records),
				Detail: detail,
			}
		}
		out = append(out, records...)
	}
	return out, nil
}

// ExtractIntercept returns the intercept row of response from a fit referenced at ref.
func ExtractIntercept(table *schema.CoefficientTable, response string, ref schema.Level) (schema.Coefficient, error) {
	var found []schema.Coefficient
	if table != nil {
		for _, row := range table.Rows {
			if row.Intercept && row.Response == response {
				found = append(found, row)
			}
		}
	}
	if len(found) != 1 {
		return schema.Coefficient{}, &schema.MissingTermError{
			Column: schema.InterceptTerm, Response: response, Reference: ref, Want: 1, Got: len(found),
		}
	}
	return found[0], nil
}

func missingLevels(records []schema.ContrastRecord, levels []schema.Level, ref schema.Level) string {
	var missing []schema.Level
	for _, l := range levels {
		if l == ref {
			continue
		}
		if !slices.ContainsFunc(records, func(r schema.ContrastRecord) bool { return r.Other == l }) {
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("no term for %v, the level may have no complete rows", missing)
}
