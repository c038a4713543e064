// Package runstore records contrast runs and their results in a SQL database.
package runstore

import (
	"sync"

	"github.com/huangsam/pairwise/internal/contract"
)

// RunStoreManager holds the process-wide RunStore.
type RunStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	runs         contract.RunStore
}

var _ contract.RunManager = &RunStoreManager{} // Compile-time check

// GetRunStore returns the RunStore, or nil when run tracking is disabled.
func (mgr *RunStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
