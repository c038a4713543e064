package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Pair is a directed comparison: Other relative to Base.
type Pair struct {
	Base  Level `json:"base" mapstructure:"base"`
	Other Level `json:"other" mapstructure:"other"`
}

// Reverse swaps base and other.
func (p Pair) Reverse() Pair {
	return Pair{Base: p.Other, Other: p.Base}
}

// key returns the unordered identity of the pair.
func (p Pair) key() [2]Level {
	if p.Base < p.Other {
		return [2]Level{p.Base, p.Other}
	}
	return [2]Level{p.Other, p.Base}
}

// DirectionTable assigns exactly one direction to every unordered pair of a Level Set.
// It is validated on construction and immutable afterwards.
type DirectionTable struct {
	levels []Level
	pairs  []Pair
	index  map[[2]Level]Pair
}

// NewDirectionTable validates pairs against levels and returns the table.
// Every one of the C(k,2) unordered pairs must be listed exactly once.
func NewDirectionTable(levels []Level, pairs []Pair) (*DirectionTable, error) {
	if err := ValidateLevelSet("", levels); err != nil {
		return nil, err
	}
	t := &DirectionTable{
		levels: slices.Clone(levels),
		pairs:  make([]Pair, 0, len(pairs)),
		index:  make(map[[2]Level]Pair, len(pairs)),
	}
	for _, p := range pairs {
		if p.Base == p.Other {
			return nil, &InvalidLevelError{Level: p.Base, Reason: "a pair needs two distinct levels"}
		}
		for _, l := range []Level{p.Base, p.Other} {
			if !slices.Contains(levels, l) {
				return nil, &InvalidLevelError{Level: l, Reason: "direction table references a level outside the level set"}
			}
		}
		if prev, ok := t.index[p.key()]; ok {
			return nil, &AmbiguousPairError{Pair: p, Reason: fmt.Sprintf("listed more than once (already %s)", PairLabel(prev.Base, prev.Other))}
		}
		t.index[p.key()] = p
		t.pairs = append(t.pairs, p)
	}

	var missing []Pair
	for i := range levels {
		for j := i + 1; j < len(levels); j++ {
			p := Pair{Base: levels[i], Other: levels[j]}
			if _, ok := t.index[p.key()]; !ok {
				missing = append(missing, p)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteDirectionTableError{Missing: missing}
	}
	return t, nil
}

// Levels returns the Level Set the table was validated against.
func (t *DirectionTable) Levels() []Level {
	return slices.Clone(t.levels)
}

// Pairs returns the directions in the order they were supplied.
func (t *DirectionTable) Pairs() []Pair {
	return slices.Clone(t.pairs)
}

// Len returns the number of pairs, always C(k,2).
func (t *DirectionTable) Len() int {
	return len(t.pairs)
}

// Direction returns the assigned direction for the unordered pair {a,b}.
func (t *DirectionTable) Direction(a, b Level) (Pair, bool) {
	p, ok := t.index[Pair{Base: a, Other: b}.key()]
	return p, ok
}

// ValidateLevelSet checks that levels has at least two distinct, non-empty entries.
func ValidateLevelSet(column string, levels []Level) error {
	if len(levels) < 2 {
		return &InvalidLevelError{Column: column, Reason: fmt.Sprintf("need at least 2 levels, got %d", len(levels))}
	}
	seen := make(map[Level]struct{}, len(levels))
	for _, l := range levels {
		if l == "" {
			return &InvalidLevelError{Column: column, Reason: "empty level name"}
		}
		if _, dup := seen[l]; dup {
			return &InvalidLevelError{Column: column, Level: l, Reason: "level listed more than once"}
		}
		seen[l] = struct{}{}
	}
	return nil
}

// OrderedDirections returns the upper-triangle directions of levels:
// for i < j the earlier level is the base.
func OrderedDirections(levels []Level) []Pair {
	var pairs []Pair
	for i := range levels {
		for j := i + 1; j < len(levels); j++ {
			pairs = append(pairs, Pair{Base: levels[i], Other: levels[j]})
		}
	}
	return pairs
}

// ParsePairs parses "base:other" entries separated by commas.
func ParsePairs(s string) ([]Pair, error) {
	var pairs []Pair
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		base, other, ok := strings.Cut(part, ":")
		base, other = strings.TrimSpace(base), strings.TrimSpace(other)
		if !ok || base == "" || other == "" {
			return nil, fmt.Errorf("invalid pair %q (expected base:other)", part)
		}
		pairs = append(pairs, Pair{Base: Level(base), Other: Level(other)})
	}
	return pairs, nil
}

// ParseLevels parses a comma-separated level list.
func ParseLevels(s string) []Level {
	var levels []Level
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			levels = append(levels, Level(part))
		}
	}
	return levels
}
