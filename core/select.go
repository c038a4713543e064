package core

import (
	"slices"

	"github.com/huangsam/pairwise/schema"
)

// NonRedundantSet holds one ContrastRecord per unordered pair and response,
// each in the direction assigned by a DirectionTable.
// Only SelectNonRedundant can build a non-empty set.
type NonRedundantSet struct {
	records   []schema.ContrastRecord
	responses []string
	pairs     []schema.Pair
}

// Records returns the selected records, grouped by response in direction table order.
func (s NonRedundantSet) Records() []schema.ContrastRecord {
	return slices.Clone(s.records)
}

// Responses returns the responses in the order they first appear in the directed set.
func (s NonRedundantSet) Responses() []string {
	return slices.Clone(s.responses)
}

// Len returns the number of selected records.
func (s NonRedundantSet) Len() int {
	return len(s.records)
}

// SelectNonRedundant keeps, for each response and each pair of the table, the one
// directed record whose base matches the assigned direction.
func SelectNonRedundant(directed []schema.ContrastRecord, table *schema.DirectionTable) (NonRedundantSet, error) {
	if table == nil {
		return NonRedundantSet{}, &schema.IncompleteDirectionTableError{}
	}

	var responses []string
	byResponse := make(map[string][]schema.ContrastRecord)
	var unassigned []schema.Pair
	for _, r := range directed {
		if _, ok := table.Direction(r.Base, r.Other); !ok {
			p := r.Pair()
			if !slices.Contains(unassigned, p) && !slices.Contains(unassigned, p.Reverse()) {
				unassigned = append(unassigned, p)
			}
			continue
		}
		if _, ok := byResponse[r.Response]; !ok {
			responses = append(responses, r.Response)
		}
		byResponse[r.Response] = append(byResponse[r.Response], r)
	}
	if len(unassigned) > 0 {
		return NonRedundantSet{}, &schema.IncompleteDirectionTableError{Missing: unassigned}
	}

	pairs := table.Pairs()
	set := NonRedundantSet{
		records:   make([]schema.ContrastRecord, 0, len(responses)*len(pairs)),
		responses: responses,
		pairs:     pairs,
	}
	for _, resp := range responses {
		records := byResponse[resp]
		for _, p := range pairs {
			var match []schema.ContrastRecord
			for _, r := range records {
				if r.Base == p.Base && r.Other == p.Other {
					match = append(match, r)
				}
			}
			if len(match) != 1 {
				return NonRedundantSet{}, &schema.AmbiguousPairError{Pair: p, Response: resp, Found: len(match)}
			}
			set.records = append(set.records, match[0])
		}
	}
	return set, nil
}
