// Package costdatatest builds cost datasets for tests.
package costdatatest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// FromTotals builds a dataset of consecutive days starting at start
func FromTotals(start time.Time, totals ...float64) *costdata.Dataset {
	ds := &costdata.Dataset{ResultsByTime: make([]costdata.ResultByTime, 0, len(totals))}
	for i, t := range totals {
		ds.ResultsByTime = append(ds.ResultsByTime, costdata.NewDay(start.AddDate(0, 0, i), decimal.NewFromFloat(t)))
	}
	return ds
}
