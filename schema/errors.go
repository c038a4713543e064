package schema

import (
	"fmt"
	"strings"
)

// InvalidLevelError reports a bad reference level or level ordering.
type InvalidLevelError struct {
	Column string
	Level  Level
	Reason string
}

func (e *InvalidLevelError) Error() string {
	if e.Level == "" {
		return fmt.Sprintf("invalid levels for column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("invalid level %q for column %q: %s", e.Level, e.Column, e.Reason)
}

// MissingTermError reports a refit whose coefficient table does not carry
// exactly one term per non-reference level.
type MissingTermError struct {
	Column    string
	Response  string
	Reference Level
	Want      int
	Got       int
	Detail    string
}

func (e *MissingTermError) Error() string {
	msg := fmt.Sprintf("column %q with reference %q: expected %d terms for response %q, got %d",
		e.Column, e.Reference, e.Want, e.Response, e.Got)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// IncompleteDirectionTableError reports unordered pairs that have no assigned direction.
type IncompleteDirectionTableError struct {
	Missing []Pair
}

func (e *IncompleteDirectionTableError) Error() string {
	labels := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		labels[i] = fmt.Sprintf("{%s,%s}", p.Base, p.Other)
	}
	return fmt.Sprintf("direction table is missing %d pair(s): %s", len(e.Missing), strings.Join(labels, ", "))
}

// AmbiguousPairError reports a direction whose contrast cannot be resolved to a single record.
type AmbiguousPairError struct {
	Pair     Pair
	Response string
	Found    int
	Reason   string
}

func (e *AmbiguousPairError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pair %s: %s", PairLabel(e.Pair.Base, e.Pair.Other), e.Reason)
	}
	return fmt.Sprintf("pair %s for response %q: found %d matching contrasts, want 1",
		PairLabel(e.Pair.Base, e.Pair.Other), e.Response, e.Found)
}

// FitError is an opaque failure from the fitting service.
type FitError struct {
	Family    ModelFamily
	Reference Level
	Err       error
}

func (e *FitError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("%s fit failed: %v", e.Family, e.Err)
	}
	return fmt.Sprintf("%s fit with reference %q failed: %v", e.Family, e.Reference, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}
