// Package anomaly provides cost spike detection.
package anomaly

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// DefaultSpikeRatio flags a day that costs 30% more than the trailing average
const DefaultSpikeRatio = 1.3

// DetectorConfig holds configuration for spike detection
type DetectorConfig struct {
	SpikeRatio float64 // latest must exceed baseline * SpikeRatio
}

// Signal represents a detected cost spike
type Signal struct {
	Date            string  `json:"date"`
	Current         float64 `json:"current"`
	Average         float64 `json:"average"`
	IncreasePercent float64 `json:"increase_percent"`
	Severity        string  `json:"severity"` // low, medium, high, critical
	Reason          string  `json:"reason"`
}

// Detector flags the latest record when it spikes above the records before it
type Detector struct {
	config DetectorConfig
}

// NewDetector creates a new spike detector
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.SpikeRatio <= 0 {
		cfg.SpikeRatio = DefaultSpikeRatio
	}
	return &Detector{config: cfg}
}

// Detect checks the dataset's last record against the mean of all earlier
// records. A nil signal means no anomaly; unreadable data also yields nil.
func (d *Detector) Detect(ds *costdata.Dataset) *Signal {
	totals, err := ds.DailyTotals()
	if err != nil || len(totals) < 2 {
		return nil
	}

	signal := d.DetectValues(totals)
	if signal != nil {
		signal.Date = ds.ResultsByTime[len(totals)-1].TimePeriod.Start
	}
	return signal
}

// DetectValues runs the spike check over raw daily totals
func (d *Detector) DetectValues(totals []float64) *Signal {
	if len(totals) < 2 {
		return nil
	}

	latest := totals[len(totals)-1]
	baseline := mean(totals[:len(totals)-1])

	// Without a positive baseline the increase is undefined
	if baseline <= 0 || math.IsNaN(baseline) || math.IsInf(latest, 0) {
		return nil
	}
	if latest <= baseline*d.config.SpikeRatio {
		return nil
	}

	percentChange := (latest - baseline) / baseline * 100

	return &Signal{
		Current:         round(latest, 2),
		Average:         round(baseline, 2),
		IncreasePercent: round(percentChange, 1),
		Severity:        severity(percentChange),
		Reason:          determineReason(percentChange),
	}
}

// Detect runs the default detector
func Detect(ds *costdata.Dataset) *Signal {
	return NewDetector(DetectorConfig{}).Detect(ds)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// severity grades the spike size
func severity(percentChange float64) string {
	switch {
	case percentChange >= 200:
		return "critical"
	case percentChange >= 100:
		return "high"
	case percentChange >= 50:
		return "medium"
	default:
		return "low"
	}
}

// determineReason suggests possible reasons for the spike
func determineReason(percentChange float64) string {
	if percentChange > 100 {
		return "Significant cost spike - possible new workload or misconfiguration"
	} else if percentChange > 50 {
		return "Notable increase - check for scaling events or new resources"
	}
	return "Moderate increase above the trailing average"
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
