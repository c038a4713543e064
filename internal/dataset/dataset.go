// Package dataset holds in-memory tabular data and immutable views over it.
package dataset

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/huangsam/pairwise/schema"
	"gonum.org/v1/gonum/stat"
)

// ColumnKind tells numeric columns apart from categorical ones.
type ColumnKind int

// Column kinds.
const (
	Numeric ColumnKind = iota
	Categorical
)

func (k ColumnKind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// ErrNoColumn is returned when a column name is unknown.
var ErrNoColumn = errors.New("no such column")

// column is never modified once a Dataset references it.
type column struct {
	name    string
	kind    ColumnKind
	numeric []float64      // NaN marks missing
	values  []schema.Level // empty string marks missing
}

// Dataset is a read-only table. Views derived from it share column storage
// but carry their own level orderings, so deriving a view never affects the parent.
type Dataset struct {
	columns []*column
	byName  map[string]int
	levels  map[string][]schema.Level
	rows    int
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int {
	return d.rows
}

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// Kind returns the kind of the named column.
func (d *Dataset) Kind(name string) (ColumnKind, bool) {
	c, ok := d.column(name)
	if !ok {
		return 0, false
	}
	return c.kind, true
}

// Numeric returns a copy of a numeric column. Missing cells are NaN.
func (d *Dataset) Numeric(name string) ([]float64, error) {
	c, ok := d.column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	if c.kind != Numeric {
		return nil, fmt.Errorf("column %q is %s, not numeric", name, c.kind)
	}
	return slices.Clone(c.numeric), nil
}

// Categorical returns a copy of a categorical column. Missing cells are empty.
func (d *Dataset) Categorical(name string) ([]schema.Level, error) {
	c, ok := d.column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	if c.kind != Categorical {
		return nil, fmt.Errorf("column %q is %s, not categorical", name, c.kind)
	}
	return slices.Clone(c.values), nil
}

// Levels returns the level order of a categorical column in this view.
// The first level is the reference category.
func (d *Dataset) Levels(name string) []schema.Level {
	return slices.Clone(d.levels[name])
}

// Reference returns the reference level of a categorical column in this view.
func (d *Dataset) Reference(name string) (schema.Level, bool) {
	lv := d.levels[name]
	if len(lv) == 0 {
		return "", false
	}
	return lv[0], true
}

// WithLevels returns a view whose categorical column uses the given level order.
// order must be a permutation of the column's current levels.
func (d *Dataset) WithLevels(name string, order []schema.Level) (*Dataset, error) {
	c, ok := d.column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	if c.kind != Categorical {
		return nil, fmt.Errorf("column %q is %s, not categorical", name, c.kind)
	}
	current := d.levels[name]
	if len(order) != len(current) {
		return nil, fmt.Errorf("column %q has %d levels, order lists %d", name, len(current), len(order))
	}
	for _, l := range current {
		if !slices.Contains(order, l) {
			return nil, fmt.Errorf("column %q: order is missing level %q", name, l)
		}
	}

	view := d.shallowCopy()
	view.levels[name] = slices.Clone(order)
	return view, nil
}

// CompleteRows returns the rows where every named column is present.
func (d *Dataset) CompleteRows(names ...string) ([]int, error) {
	missing := make([]bool, d.Rows())
	for _, name := range names {
		c, ok := d.column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
		}
		for i := range missing {
			if c.kind == Numeric && math.IsNaN(c.numeric[i]) {
				missing[i] = true
			}
			if c.kind == Categorical && c.values[i] == "" {
				missing[i] = true
			}
		}
	}
	var rows []int
	for i, m := range missing {
		if !m {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// Standardize returns a view where each named numeric column is centered to
// mean zero and scaled to unit standard deviation over its non-missing cells.
func (d *Dataset) Standardize(names ...string) (*Dataset, error) {
	return d.StandardizeRows(nil, names...)
}

// StandardizeRows is Standardize with the mean and standard deviation taken over
// rows only. Every cell is rescaled. A nil rows selects all rows.
func (d *Dataset) StandardizeRows(rows []int, names ...string) (*Dataset, error) {
	var use []bool
	if rows != nil {
		use = make([]bool, d.Rows())
		for _, r := range rows {
			if r < 0 || r >= len(use) {
				return nil, fmt.Errorf("row %d out of range", r)
			}
			use[r] = true
		}
	}
	view := d.shallowCopy()
	view.columns = slices.Clone(d.columns)
	for _, name := range names {
		idx, ok := d.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
		}
		c := d.columns[idx]
		if c.kind != Numeric {
			return nil, fmt.Errorf("cannot standardize %s column %q", c.kind, name)
		}
		present := make([]float64, 0, len(c.numeric))
		for i, v := range c.numeric {
			if use != nil && !use[i] {
				continue
			}
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		if len(present) < 2 {
			return nil, fmt.Errorf("cannot standardize column %q: fewer than 2 values", name)
		}
		mean, sd := stat.MeanStdDev(present, nil)
		if sd == 0 {
			return nil, fmt.Errorf("cannot standardize column %q: zero variance", name)
		}
		scaled := make([]float64, len(c.numeric))
		for i, v := range c.numeric {
			scaled[i] = (v - mean) / sd
		}
		view.columns[idx] = &column{name: c.name, kind: Numeric, numeric: scaled}
	}
	return view, nil
}

func (d *Dataset) column(name string) (*column, bool) {
	idx, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.columns[idx], true
}

func (d *Dataset) shallowCopy() *Dataset {
	return &Dataset{
		columns: d.columns,
		byName:  d.byName,
		levels:  maps.Clone(d.levels),
		rows:    d.rows,
	}
}
