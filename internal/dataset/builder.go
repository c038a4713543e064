package dataset

import (
	"fmt"
	"slices"

	"github.com/huangsam/pairwise/schema"
)

// Builder assembles a Dataset column by column.
type Builder struct {
	columns []*column
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Numeric adds a numeric column. NaN marks a missing cell.
func (b *Builder) Numeric(name string, values []float64) *Builder {
	b.columns = append(b.columns, &column{name: name, kind: Numeric, numeric: slices.Clone(values)})
	return b
}

// Categorical adds a categorical column. An empty string marks a missing cell.
func (b *Builder) Categorical(name string, values []string) *Builder {
	levels := make([]schema.Level, len(values))
	for i, v := range values {
		levels[i] = schema.Level(v)
	}
	b.columns = append(b.columns, &column{name: name, kind: Categorical, values: levels})
	return b
}

// Build validates column lengths and names and derives default level orders.
func (b *Builder) Build() (*Dataset, error) {
	if len(b.columns) == 0 {
		return nil, fmt.Errorf("dataset has no columns")
	}

	d := &Dataset{
		columns: b.columns,
		byName:  make(map[string]int, len(b.columns)),
		levels:  make(map[string][]schema.Level),
		rows:    columnLen(b.columns[0]),
	}
	for i, c := range b.columns {
		if c.name == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if _, dup := d.byName[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		if n := columnLen(c); n != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, n, d.rows)
		}
		d.byName[c.name] = i
		if c.kind == Categorical {
			d.levels[c.name] = defaultLevels(c.values)
		}
	}
	return d, nil
}

func columnLen(c *column) int {
	if c.kind == Categorical {
		return len(c.values)
	}
	return len(c.numeric)
}

// defaultLevels returns the sorted distinct non-missing values.
func defaultLevels(values []schema.Level) []schema.Level {
	seen := make(map[schema.Level]struct{})
	var levels []schema.Level
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
	}
	slices.Sort(levels)
	return levels
}
