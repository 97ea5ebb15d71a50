package providers

import (
	"context"
	"time"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// MockSource generates a synthetic dataset for demos and dry runs
type MockSource struct {
	seed int64
}

// NewMockSource creates a mock source; the seed fixes the generated costs
func NewMockSource(seed int64) *MockSource {
	return &MockSource{seed: seed}
}

// Name returns the provider name
func (m *MockSource) Name() string {
	return "mock"
}

// FetchDataset builds one record per day in [start, end)
func (m *MockSource) FetchDataset(_ context.Context, start, end time.Time) (*costdata.Dataset, error) {
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return costdata.NewMockGenerator(m.seed).Build(start, days), nil
}
