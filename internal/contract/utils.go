package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/pairwise/schema"
)

// Significance label constants.
const (
	StrongValue      = "Strong"      // Adjusted p-value far below alpha
	HighValue        = "High"        // Adjusted p-value well below alpha
	SignificantValue = "Significant" // Adjusted p-value at or below alpha
	NotSignificant   = "NS"          // Adjusted p-value above alpha
)

// Color variables for console output.
var (
	StrongColor      = color.New(color.FgRed, color.Bold)     // StrongColor represents the clearest evidence.
	HighColor        = color.New(color.FgMagenta, color.Bold) // HighColor represents strong, distinct evidence.
	SignificantColor = color.New(color.FgYellow)              // SignificantColor represents evidence at the alpha level, not bold.
	NotSigColor      = color.New(color.FgCyan)                // NotSigColor represents informational / no evidence.
)

// GetPlainLabel returns a plain text label for an adjusted p-value at level alpha.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(adjP, alpha float64) string {
	switch {
	case adjP <= alpha/50:
		return StrongValue
	case adjP <= alpha/5:
		return HighValue
	case adjP <= alpha:
		return SignificantValue
	default:
		return NotSignificant
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(adjP, alpha float64) string {
	text := GetPlainLabel(adjP, alpha)

	switch text {
	case StrongValue:
		return StrongColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case SignificantValue:
		return SignificantColor.Sprint(text)
	default:
		return NotSigColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetRunDBFilePath returns the path to the SQLite DB file for run storage.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pairwise_runs.db"
	}
	return filepath.Join(homeDir, ".pairwise_runs.db")
}

// TruncateLabel truncates a label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogRunHeader prints a concise, 2-line header for a run to stderr.
// pairs is 0 for baseline runs.
func LogRunHeader(cfg *Config, levels, pairs int) {
	_, _ = fmt.Fprintf(os.Stderr, "🔎 Data: %s (Column: %s, Levels: %d)\n", filepath.Base(cfg.DataPath), cfg.Column, levels)
	if pairs > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "📐 Model: %s [%s] with %d pairs (%s, alpha %g)\n", cfg.Formula, cfg.Family, pairs, cfg.Method, cfg.Alpha)
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "📐 Model: %s [%s]\n", cfg.Formula, schema.CountFamily)
}
