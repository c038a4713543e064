// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteContrasts prints the reporting table of a contrast run using the configured output format.
func (ow *OutWriter) WriteContrasts(result schema.ContrastResult, cfg *contract.Config, duration time.Duration) error {
	return WriteContrastResults(result, cfg, duration)
}

// WriteBaselines prints baseline estimates using the configured output format.
func (ow *OutWriter) WriteBaselines(result schema.BaselineResult, cfg *contract.Config, duration time.Duration) error {
	return WriteBaselineResults(result, cfg, duration)
}
