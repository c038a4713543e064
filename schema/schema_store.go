package schema

import "time"

// RunRecord represents a row from the pairwise_runs table.
type RunRecord struct {
	RunID          int64
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	TotalContrasts int32
	ConfigParams   *string
}

// ContrastRunRecord represents a row from the pairwise_contrasts table.
type ContrastRunRecord struct {
	RunID int64
	ContrastRow
}

// BaselineRunRecord represents a row from the pairwise_baselines table.
type BaselineRunRecord struct {
	RunID int64
	BaselineEstimate
}
