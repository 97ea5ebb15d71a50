// Package providers implements the sources a cost report can be built from.
package providers

import (
	"context"
	"time"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// Source defines the interface for cost dataset providers
type Source interface {
	Name() string
	FetchDataset(ctx context.Context, start, end time.Time) (*costdata.Dataset, error)
}

// Window returns the [start, end) range covering the last days full days
func Window(now time.Time, days int) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -days), end
}
