// Package analyzer turns a daily cost dataset into report metrics
package analyzer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// Trend classifies recent spend against older spend
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	// trendWindow is how many records feed each side of the trend comparison
	trendWindow = 3
	trendUpper  = 1.15
	trendLower  = 0.85
	// projectionDays approximates a month
	projectionDays = 30
)

// Summary contains the derived report metrics
type Summary struct {
	TotalCost          float64   `json:"total_cost"`
	IntervalCost       float64   `json:"interval_cost"`
	DailyCosts         []float64 `json:"daily_costs"`
	AvgDailyCost       float64   `json:"avg_daily_cost"`
	Trend              Trend     `json:"trend"`
	ProjectedMonthly   float64   `json:"projected_monthly"`
	BudgetUsagePercent float64   `json:"budget_usage_percent"`
	MonthlyBudget      float64   `json:"monthly_budget"`
	IntervalMinutes    int       `json:"interval_minutes"`
	Days               int       `json:"days"`
}

// Analyze computes the metrics summary. It never panics: when a record cannot
// be parsed the zero-valued summary (trend stable) is returned together with
// the error so the caller can log it and keep reporting.
func Analyze(ds *costdata.Dataset, monthlyBudget float64, intervalMinutes int) (Summary, error) {
	summary := Summary{
		Trend:           TrendStable,
		MonthlyBudget:   monthlyBudget,
		IntervalMinutes: intervalMinutes,
		DailyCosts:      []float64{},
	}

	totals, err := ds.DailyTotals()
	if err != nil {
		return summary, fmt.Errorf("failed to read daily totals: %w", err)
	}
	if len(totals) == 0 {
		return summary, nil
	}

	total := sum(totals)
	mean := total / float64(len(totals))

	summary.Days = len(totals)
	summary.DailyCosts = totals
	summary.TotalCost = round(total, 2)
	summary.AvgDailyCost = round(mean, 2)
	summary.Trend = ClassifyTrend(totals)
	summary.ProjectedMonthly = round(mean*projectionDays, 2)
	summary.IntervalCost = IntervalCost(mean, intervalMinutes)

	if monthlyBudget > 0 {
		summary.BudgetUsagePercent = round(summary.TotalCost/monthlyBudget*100, 1)
	}

	return summary, nil
}

// ClassifyTrend compares the mean of the last three totals with the mean of
// the first three. Fewer than two totals is always stable.
func ClassifyTrend(totals []float64) Trend {
	if len(totals) < 2 {
		return TrendStable
	}

	n := min(trendWindow, len(totals))
	recent := sum(totals[len(totals)-n:]) / float64(n)
	older := sum(totals[:n]) / float64(n)

	switch {
	case recent > older*trendUpper:
		return TrendIncreasing
	case recent < older*trendLower:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// IntervalCost scales an average daily cost linearly down to one scheduling
// interval. The dataset is daily, so this is an estimate and not a measurement.
func IntervalCost(avgDaily float64, intervalMinutes int) float64 {
	if intervalMinutes <= 0 {
		return 0
	}
	return round(avgDaily/24*(float64(intervalMinutes)/60), 4)
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
