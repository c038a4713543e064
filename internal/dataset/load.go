package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

// LoadOptions controls CSV type inference.
type LoadOptions struct {
	// Categorical forces the named columns to be categorical even when every cell is numeric.
	Categorical []string
}

// missingTokens are cell values treated as missing.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"null": {},
}

// LoadFile reads a CSV file with a header row.
func LoadFile(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, opts)
}

// Load reads CSV data with a header row. A column is numeric when every
// non-missing cell parses as a float, otherwise it is categorical.
func Load(r io.Reader, opts LoadOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("data file is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cells := make([][]string, len(header))
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		for i, v := range rec {
			cells[i] = append(cells[i], strings.TrimSpace(v))
		}
	}

	b := NewBuilder()
	for i, name := range header {
		values := cells[i]
		if slices.Contains(opts.Categorical, name) {
			b.Categorical(name, blankMissing(values))
			continue
		}
		if nums, ok := parseNumeric(values); ok {
			b.Numeric(name, nums)
		} else {
			b.Categorical(name, blankMissing(values))
		}
	}
	for _, name := range opts.Categorical {
		if !slices.Contains(header, name) {
			return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
		}
	}
	return b.Build()
}

func parseNumeric(values []string) ([]float64, bool) {
	nums := make([]float64, len(values))
	for i, v := range values {
		if _, missing := missingTokens[v]; missing {
			nums[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		nums[i] = f
	}
	return nums, true
}

func blankMissing(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if _, missing := missingTokens[v]; !missing {
			out[i] = v
		}
	}
	return out
}
