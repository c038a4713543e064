package fit

import (
	"context"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/dataset"
	"github.com/huangsam/pairwise/schema"
	"github.com/stretchr/testify/mock"
)

// MockFitter is a mock implementation of Fitter for testing.
type MockFitter struct {
	mock.Mock
}

var _ contract.Fitter = &MockFitter{} // Compile-time check

// Fit implements the Fitter interface.
func (m *MockFitter) Fit(ctx context.Context, formula string, data *dataset.Dataset, family schema.ModelFamily, opts schema.FitOptions) (*schema.CoefficientTable, error) {
	args := m.Called(ctx, formula, data, family, opts)
	table, _ := args.Get(0).(*schema.CoefficientTable)
	return table, args.Error(1)
}
