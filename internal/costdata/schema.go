// Package costdata provides the daily billing dataset shared by every stage of the report.
package costdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the Cost Explorer date format
const DateLayout = "2006-01-02"

// DefaultUnit is the only currency the reporter handles
const DefaultUnit = "USD"

// ErrMalformedAmount is returned when a record total cannot be parsed
var ErrMalformedAmount = errors.New("malformed cost amount")

// Dataset is an ordered sequence of daily cost records in the Cost Explorer
// ResultsByTime shape. Records are assumed sorted by TimePeriod ascending.
type Dataset struct {
	Mocked        bool           `json:"mocked,omitempty"`
	GeneratedOn   string         `json:"generated_on,omitempty"`
	ResultsByTime []ResultByTime `json:"ResultsByTime"`
	TotalDays     int            `json:"total_days,omitempty"`
}

// ResultByTime holds one day of cost data
type ResultByTime struct {
	TimePeriod TimePeriod `json:"TimePeriod"`
	Total      Total      `json:"Total"`
	Groups     []Group    `json:"Groups,omitempty"`
	Details    []Detail   `json:"Details,omitempty"`
}

// TimePeriod is a [Start, End) date window
type TimePeriod struct {
	Start string `json:"Start"`
	End   string `json:"End"`
}

// Total carries the record's cost metric. Cost Explorer reports either
// blended or unblended cost depending on the query.
type Total struct {
	BlendedCost   *Metric `json:"BlendedCost,omitempty"`
	UnblendedCost *Metric `json:"UnblendedCost,omitempty"`
}

// Metric is a string-encoded decimal amount with its unit
type Metric struct {
	Amount string `json:"Amount"`
	Unit   string `json:"Unit"`
}

// Group is a Cost Explorer group-by result (Keys[0] is the service)
type Group struct {
	Keys    []string `json:"Keys"`
	Metrics Total    `json:"Metrics"`
}

// Detail is a per service and account slice of a day
type Detail struct {
	TimePeriod TimePeriod `json:"TimePeriod"`
	Account    string     `json:"Account"`
	Service    string     `json:"Service"`
	Total      Total      `json:"Total"`
}

// Metric returns the blended cost, falling back to unblended
func (t Total) Metric() *Metric {
	if t.BlendedCost != nil {
		return t.BlendedCost
	}
	return t.UnblendedCost
}

// Decimal parses the amount
func (m *Metric) Decimal() (decimal.Decimal, error) {
	if m == nil {
		return decimal.Zero, fmt.Errorf("%w: missing metric", ErrMalformedAmount)
	}
	d, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, m.Amount)
	}
	return d, nil
}

// Value returns the total as a float
func (r ResultByTime) Value() (float64, error) {
	d, err := r.Total.Metric().Decimal()
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", r.TimePeriod.Start, err)
	}
	return d.InexactFloat64(), nil
}

// Len returns the number of daily records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ResultsByTime)
}

// DailyTotals returns the per-record totals in dataset order. The first
// malformed record aborts the pass.
func (d *Dataset) DailyTotals() ([]float64, error) {
	if d == nil {
		return nil, nil
	}
	totals := make([]float64, 0, len(d.ResultsByTime))
	for _, r := range d.ResultsByTime {
		v, err := r.Value()
		if err != nil {
			return totals, err
		}
		totals = append(totals, v)
	}
	return totals, nil
}

// Period returns the first start and last end date of the dataset
func (d *Dataset) Period() (start, end string) {
	if d.Len() == 0 {
		return "", ""
	}
	return d.ResultsByTime[0].TimePeriod.Start, d.ResultsByTime[len(d.ResultsByTime)-1].TimePeriod.End
}

// NewDay builds a daily record with a blended total
func NewDay(day time.Time, amount decimal.Decimal) ResultByTime {
	return ResultByTime{
		TimePeriod: TimePeriod{
			Start: day.Format(DateLayout),
			End:   day.AddDate(0, 0, 1).Format(DateLayout),
		},
		Total: Total{BlendedCost: &Metric{Amount: amount.StringFixed(2), Unit: DefaultUnit}},
	}
}

// legacyDataset is the early mock layout: {"total_cost": n, "details": [...]}
type legacyDataset struct {
	Details []ResultByTime `json:"details"`
}

// Parse decodes a persisted dataset. Both the ResultsByTime layout and the
// legacy details layout are accepted.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse cost dataset: %w", err)
	}

	if len(ds.ResultsByTime) == 0 {
		var legacy legacyDataset
		if err := json.Unmarshal(data, &legacy); err == nil && len(legacy.Details) > 0 {
			ds.ResultsByTime = legacy.Details
		}
	}

	return &ds, nil
}

// Marshal encodes the dataset in the persisted layout
func (d *Dataset) Marshal() ([]byte, error) {
	out := *d
	if out.ResultsByTime == nil {
		out.ResultsByTime = []ResultByTime{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cost dataset: %w", err)
	}
	return data, nil
}
