package fit

import (
	"fmt"
	"math"

	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
	"gonum.org/v1/gonum/mat"
)

// term describes one column of the design matrix.
type term struct {
	name      string
	column    string
	level     schema.Level
	intercept bool
}

// design is a treatment-coded model matrix over the rows it was built from.
type design struct {
	x      *mat.Dense
	terms  []term
	rows   []int     // Source row of every design row
	offset []float64 // Nil without an offset
}

// buildDesign builds the model matrix of f over rows: an intercept, one indicator per
// non-reference level of each categorical term and one column per numeric term.
// A level without rows gets no indicator. When the reference level itself has no
// rows the last indicator of that term is aliased with the intercept and dropped.
func buildDesign(data *dataset.Dataset, f *Formula, rows []int) (*design, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no complete rows")
	}
	d := &design{rows: rows, terms: []term{{name: schema.InterceptTerm, intercept: true}}}
	var cols [][]float64
	intercept := make([]float64, len(rows))
	for i := range intercept {
		intercept[i] = 1
	}
	cols = append(cols, intercept)

	for _, name := range f.Terms {
		kind, ok := data.Kind(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", dataset.ErrNoColumn, name)
		}
		if kind == dataset.Numeric {
			vals, _ := data.Numeric(name)
			col := make([]float64, len(rows))
			for i, r := range rows {
				col[i] = vals[r]
			}
			d.terms = append(d.terms, term{name: name, column: name})
			cols = append(cols, col)
			continue
		}

		vals, _ := data.Categorical(name)
		levels := data.Levels(name)
		counts := make(map[schema.Level]int, len(levels))
		for _, r := range rows {
			counts[vals[r]]++
		}
		var added []int
		for _, l := range levels[1:] {
			if counts[l] == 0 {
				continue
			}
			col := make([]float64, len(rows))
			for i, r := range rows {
				if vals[r] == l {
					col[i] = 1
				}
			}
			d.terms = append(d.terms, term{name: name + string(l), column: name, level: l})
			cols = append(cols, col)
			added = append(added, len(cols)-1)
		}
		if counts[levels[0]] == 0 && len(added) > 0 {
			last := added[len(added)-1]
			d.terms = append(d.terms[:last], d.terms[last+1:]...)
			cols = append(cols[:last], cols[last+1:]...)
		}
	}

	if f.Offset != "" {
		vals, err := data.Numeric(f.Offset)
		if err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		d.offset = make([]float64, len(rows))
		for i, r := range rows {
			v := vals[r]
			if f.OffsetLog {
				if v <= 0 {
					return nil, fmt.Errorf("offset column %q has non-positive value %g", f.Offset, v)
				}
				v = math.Log(v)
			}
			d.offset[i] = v
		}
	}

	d.x = mat.NewDense(len(rows), len(cols), nil)
	for j, col := range cols {
		d.x.SetCol(j, col)
	}
	return d, nil
}

// n returns the number of observations.
func (d *design) n() int {
	r, _ := d.x.Dims()
	return r
}

// p returns the number of coefficients.
func (d *design) p() int {
	_, c := d.x.Dims()
	return c
}

// coefficient builds a table row for design column j.
func (d *design) coefficient(response string, j int, est, se, stat, p float64) schema.Coefficient {
	t := d.terms[j]
	return schema.Coefficient{
		Response:  response,
		Term:      t.name,
		Column:    t.column,
		Level:     t.level,
		Intercept: t.intercept,
		Estimate:  est,
		StdErr:    se,
		Statistic: stat,
		PValue:    p,
	}
}

// termColumns returns the columns read by the right-hand side of f.
func termColumns(f *Formula) []string {
	cols := append([]string(nil), f.Terms...)
	if f.Offset != "" {
		cols = append(cols, f.Offset)
	}
	return cols
}
