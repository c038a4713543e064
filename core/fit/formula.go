// Package fit is the fitting service behind the contrast engine.
package fit

import (
	"fmt"
	"slices"
	"strings"
)

// Formula is a parsed model formula such as "y ~ group + age + offset(log(depth))".
type Formula struct {
	Responses []string
	Terms     []string
	Offset    string // Column added to the linear predictor, empty when absent
	OffsetLog bool   // Offset column is log-transformed first
}

// ParseFormula parses "resp [+ resp] ~ term [+ term] [+ offset(log(col)) | offset(col)]".
// The left side may be empty for compositional responses given elsewhere.
func ParseFormula(s string) (*Formula, error) {
	lhs, rhs, ok := strings.Cut(s, "~")
	if !ok {
		return nil, fmt.Errorf("formula %q has no '~'", s)
	}
	if strings.Contains(rhs, "~") {
		return nil, fmt.Errorf("formula %q has more than one '~'", s)
	}

	f := &Formula{}
	if strings.TrimSpace(lhs) != "" {
		responses, err := splitTerms(lhs)
		if err != nil {
			return nil, fmt.Errorf("formula %q: %w", s, err)
		}
		f.Responses = responses
	}

	terms, err := splitTerms(rhs)
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", s, err)
	}
	for _, t := range terms {
		if inner, ok := unwrap(t, "offset"); ok {
			if f.Offset != "" {
				return nil, fmt.Errorf("formula %q has more than one offset", s)
			}
			if col, ok := unwrap(inner, "log"); ok {
				f.Offset, f.OffsetLog = col, true
			} else {
				f.Offset = inner
			}
			if !validName(f.Offset) {
				return nil, fmt.Errorf("formula %q: invalid offset column %q", s, f.Offset)
			}
			continue
		}
		if !validName(t) {
			return nil, fmt.Errorf("formula %q: invalid term %q", s, t)
		}
		if slices.Contains(f.Terms, t) {
			return nil, fmt.Errorf("formula %q: term %q listed twice", s, t)
		}
		f.Terms = append(f.Terms, t)
	}
	if len(f.Terms) == 0 {
		return nil, fmt.Errorf("formula %q has no terms", s)
	}
	for _, r := range f.Responses {
		if slices.Contains(f.Terms, r) {
			return nil, fmt.Errorf("formula %q: %q is both response and term", s, r)
		}
	}
	return f, nil
}

// String renders the formula in canonical form.
func (f *Formula) String() string {
	rhs := slices.Clone(f.Terms)
	switch {
	case f.Offset != "" && f.OffsetLog:
		rhs = append(rhs, "offset(log("+f.Offset+"))")
	case f.Offset != "":
		rhs = append(rhs, "offset("+f.Offset+")")
	}
	return strings.TrimSpace(strings.Join(f.Responses, " + ") + " ~ " + strings.Join(rhs, " + "))
}

// Columns returns every column f reads: responses, terms and the offset.
func (f *Formula) Columns() []string {
	return append(slices.Clone(f.Responses), termColumns(f)...)
}

func splitTerms(s string) ([]string, error) {
	var out []string
	for part := range strings.SplitSeq(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty term")
		}
		out = append(out, part)
	}
	return out, nil
}

// unwrap returns x for "name(x)".
func unwrap(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	return strings.TrimSpace(s[len(name)+1 : len(s)-1]), true
}

func validName(s string) bool {
	return s != "" && !strings.ContainsAny(s, "()~+ \t")
}
