// Package main provides a performance benchmarking tool for the pairwise CLI.
// It generates synthetic count datasets with a growing number of levels and
// measures how contrast runs scale with the number of concurrent fits,
// running each case multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - pairwise binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where synthetic datasets are written
package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark case (cold run and average of warm runs).
type BenchmarkResult struct {
	Levels   int
	Workers  int
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	Runs          int
	RowsPerLevel  int
	LevelCounts   []int
	WorkerCounts  []int
	CovariateName string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       5 * time.Minute,
		Runs:          4,
		RowsPerLevel:  200,
		LevelCounts:   []int{3, 6, 12, 24},
		WorkerCounts:  []int{1, 2, 4, 8},
		CovariateName: "age",
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the pairwise binary and the work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("pairwise"); err != nil {
		return fmt.Errorf("pairwise binary not found in PATH")
	}
	info, err := os.Stat(config.WorkDir)
	if err != nil {
		return fmt.Errorf("work directory %s not found", config.WorkDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("work directory %s is not a directory", config.WorkDir)
	}
	return nil
}

// writeDataset writes a count dataset with k levels whose means grow with the level index.
func writeDataset(config BenchmarkConfig, k int) (string, error) {
	path := filepath.Join(config.WorkDir, fmt.Sprintf("pairwise_bench_%d.csv", k))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(uint64(k), 42))
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"group", config.CovariateName, "count"}); err != nil {
		return "", err
	}
	for level := range k {
		mean := 5 + float64(level)
		for range config.RowsPerLevel {
			age := 20 + rng.Float64()*50
			lambda := mean * math.Exp(0.01*(age-45))
			row := []string{
				fmt.Sprintf("L%02d", level),
				strconv.FormatFloat(age, 'f', 1, 64),
				strconv.Itoa(poisson(rng, lambda)),
			}
			if err := writer.Write(row); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return path, writer.Error()
}

// poisson draws a Poisson variate with Knuth's method, which is fine for small means.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	p := 1.0
	n := 0
	for {
		p *= rng.Float64()
		if p <= limit {
			return n
		}
		n++
	}
}

// runBenchmarks executes every level and worker combination
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: levels %v, workers %v, %v timeout, %d runs\n",
		config.LevelCounts, config.WorkerCounts, config.Timeout, config.Runs)

	for _, k := range config.LevelCounts {
		dataPath, err := writeDataset(config, k)
		if err != nil {
			return nil, fmt.Errorf("failed to write dataset for %d levels: %w", k, err)
		}
		fmt.Printf("Benchmarking %d levels (%s)\n", k, dataPath)

		for _, workers := range config.WorkerCounts {
			cold, warm := runBenchmark(config, dataPath, workers)

			coldTime := "TIMEOUT"
			if cold > 0 {
				coldTime = fmt.Sprintf("%.3fs", cold)
			}
			warmTime := "TIMEOUT"
			if len(warm) > 0 {
				var sum float64
				for _, t := range warm {
					sum += t
				}
				warmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
			}

			fmt.Printf("  %d workers: Cold time: %s, Warm average: %s\n", workers, coldTime, warmTime)
			results = append(results, BenchmarkResult{Levels: k, Workers: workers, ColdTime: coldTime, WarmTime: warmTime})
		}
	}

	return results, nil
}

// runBenchmark executes a contrast run multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, dataPath string, workers int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"contrasts", dataPath,
		"--formula", "count ~ group + " + config.CovariateName,
		"--column", "group",
		"--auto-directions",
		"--workers", strconv.Itoa(workers),
		"--run-backend", "none",
		"--color", "no",
	}

	var times []float64
	for range config.Runs {
		start := time.Now()

		cmd := exec.Command("pairwise", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Fitted") &&
		strings.Contains(outputStr, "directed contrasts") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/pairwise_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"levels", "workers", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{strconv.Itoa(result.Levels), strconv.Itoa(result.Workers), result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %2d levels, %d workers: Cold: %s, Warm: %s\n", result.Levels, result.Workers, result.ColdTime, result.WarmTime)
	}
}
