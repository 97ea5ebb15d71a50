package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/costdata/costdatatest"
)

var day0 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

func TestDetect_Spike(t *testing.T) {
	tests := []struct {
		name     string
		totals   []float64
		current  float64
		average  float64
		increase float64
		severity string
	}{
		{name: "tenfold", totals: []float64{1, 1, 1, 1, 10}, current: 10, average: 1, increase: 900, severity: "critical"},
		{name: "fourfold", totals: []float64{5, 5, 5, 5, 20}, current: 20, average: 5, increase: 300, severity: "critical"},
		{name: "just over threshold", totals: []float64{10, 10, 13.5}, current: 13.5, average: 10, increase: 35, severity: "low"},
		{name: "uneven baseline", totals: []float64{2, 4, 6, 12}, current: 12, average: 4, increase: 200, severity: "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := Detect(costdatatest.FromTotals(day0, tt.totals...))
			require.NotNil(t, signal)

			assert.Equal(t, tt.current, signal.Current)
			assert.Equal(t, tt.average, signal.Average)
			assert.Equal(t, tt.increase, signal.IncreasePercent)
			assert.Equal(t, tt.severity, signal.Severity)
			assert.NotEmpty(t, signal.Reason)
			assert.Equal(t, day0.AddDate(0, 0, len(tt.totals)-1).Format(costdata.DateLayout), signal.Date)
		})
	}
}

func TestDetect_NoSignal(t *testing.T) {
	tests := []struct {
		name   string
		totals []float64
	}{
		{name: "empty", totals: nil},
		{name: "single record", totals: []float64{100}},
		{name: "constant", totals: []float64{3, 3, 3, 3, 3}},
		{name: "at threshold", totals: []float64{10, 10, 13}},
		{name: "decrease", totals: []float64{10, 10, 2}},
		{name: "zero baseline", totals: []float64{0, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Detect(costdatatest.FromTotals(day0, tt.totals...)))
		})
	}
}

func TestDetect_MalformedDataset(t *testing.T) {
	ds := costdatatest.FromTotals(day0, 1, 1, 10)
	ds.ResultsByTime[0].Total.BlendedCost.Amount = "??"

	assert.Nil(t, Detect(ds))
	assert.Nil(t, Detect(nil))
}

func TestDetector_CustomRatio(t *testing.T) {
	d := NewDetector(DetectorConfig{SpikeRatio: 2})

	assert.Nil(t, d.DetectValues([]float64{10, 10, 19}))
	signal := d.DetectValues([]float64{10, 10, 25})
	require.NotNil(t, signal)
	assert.Equal(t, 150.0, signal.IncreasePercent)
	assert.Equal(t, "high", signal.Severity)
}
