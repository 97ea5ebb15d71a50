package costdata

import (
	"time"

	"github.com/shopspring/decimal"
)

func fromTotals(start time.Time, totals ...float64) *Dataset {
	ds := &Dataset{ResultsByTime: make([]ResultByTime, 0, len(totals))}
	for i, t := range totals {
		ds.ResultsByTime = append(ds.ResultsByTime, NewDay(start.AddDate(0, 0, i), decimal.NewFromFloat(t)))
	}
	return ds
}
