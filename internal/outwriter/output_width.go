package outwriter

import (
	"os"

	"github.com/huangsam/pairwise/internal/contract"
	"golang.org/x/term"
)

// GetMaxTableLabelWidth calculates the maximum width for pair and response labels
// in table output based on terminal width.
func GetMaxTableLabelWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 100 // Conservative default for CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Estimate + SE + Effect + CI + P + Adj P + Label with borders/padding
	baseWidth := 85

	// Two label columns share what is left
	available := (termWidth - baseWidth) / 2
	if available < 10 {
		return 10
	}
	if available > 40 {
		return 40
	}
	return available
}
