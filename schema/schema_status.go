package schema

import "time"

// RunStatus represents the status of the run store.
type RunStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalRuns      int              `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	TotalContrasts int              `json:"total_contrasts"`
	TableSizes     map[string]int64 `json:"table_sizes"`
}
