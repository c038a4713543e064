package runstore

import (
	"time"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/mock"
)

// MockRunManager is a mock implementation of RunManager for testing.
type MockRunManager struct {
	mock.Mock
}

var _ contract.RunManager = &MockRunManager{} // Compile-time check

// GetRunStore implements the RunManager interface.
func (m *MockRunManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, totalContrasts int) error {
	args := m.Called(runID, endTime, totalContrasts)
	return args.Error(0)
}

// RecordContrasts implements the RunStore interface.
func (m *MockRunStore) RecordContrasts(runID int64, rows []schema.ContrastRow) error {
	args := m.Called(runID, rows)
	return args.Error(0)
}

// RecordBaselines implements the RunStore interface.
func (m *MockRunStore) RecordBaselines(runID int64, baselines []schema.BaselineEstimate) error {
	args := m.Called(runID, baselines)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllContrasts implements the RunStore interface.
func (m *MockRunStore) GetAllContrasts() ([]schema.ContrastRunRecord, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.ContrastRunRecord)
	return rows, args.Error(1)
}

// GetAllBaselines implements the RunStore interface.
func (m *MockRunStore) GetAllBaselines() ([]schema.BaselineRunRecord, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.BaselineRunRecord)
	return rows, args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
