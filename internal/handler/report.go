// Package handler wires the reporting and scheduling entry points.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/insights"
	"github.com/lvonguyen/cost-reporter/internal/logging"
	"github.com/lvonguyen/cost-reporter/internal/notifier"
	"github.com/lvonguyen/cost-reporter/internal/providers"
	"github.com/lvonguyen/cost-reporter/internal/reporter"
)

const topServices = 5

// ErrEmptyDataset means the source returned no daily records
var ErrEmptyDataset = errors.New("cost dataset has no records")

// ReportConfig holds the report defaults
type ReportConfig struct {
	MonthlyBudget   float64
	IntervalMinutes int
	AlertThreshold  float64
	LookbackDays    int
}

// ReportHandler runs the reporting flow: fetch, persist, analyze, summarize,
// render and publish. Only the fetch can abort it.
type ReportHandler struct {
	Source    providers.Source
	Store     ReportStore
	Insights  SummaryWriter
	Publisher Publisher
	Reporter  *reporter.Reporter
	Detector  *anomaly.Detector
	Allocator *chargeback.Allocator
	Config    ReportConfig
	Logger    *zap.Logger
	Now       func() time.Time
}

// Handle is the function entry point
func (h *ReportHandler) Handle(ctx context.Context, req ReportRequest) (ReportResponse, error) {
	return h.Run(ctx, req), nil
}

// Run executes one report
func (h *ReportHandler) Run(ctx context.Context, req ReportRequest) ReportResponse {
	logger, runID := logging.ForRun(ctx, h.logger())
	now := h.now()

	interval := h.Config.IntervalMinutes
	if req.ReportIntervalMinutes > 0 {
		interval = req.ReportIntervalMinutes
	}

	logger.Info("Starting cost report",
		zap.String("source", h.Source.Name()),
		zap.String("trigger", req.Source),
		zap.Int("interval_minutes", interval),
	)

	start, end := providers.Window(now, h.lookback())
	ds, err := h.Source.FetchDataset(ctx, start, end)
	if err == nil && ds.Len() == 0 {
		err = ErrEmptyDataset
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch cost data from %s: %w", h.Source.Name(), err)
		logger.Error("Cost report aborted", zap.Error(err))
		if h.Publisher != nil {
			h.Publisher.NotifyError(ctx, err)
		}
		return ReportResponse{
			Status:  "error",
			Message: err.Error(),
			RunID:   runID,
			Steps:   []Outcome{outcome(StepFetch, err)},
		}
	}

	steps := []Outcome{outcome(StepFetch, nil)}
	logger.Info("Cost data retrieved", zap.Int("records", ds.Len()), zap.Bool("mocked", ds.Mocked))

	// Persistence and notification are independent; a failed write is logged
	// and the flow continues.
	key, err := h.storeDataset(ctx, ds)
	if err != nil {
		logger.Warn("Failed to store raw report", zap.Error(err))
	} else {
		logger.Info("Stored raw report", zap.String("key", key))
	}
	steps = append(steps, outcome(StepStoreRaw, err))

	summary, err := analyzer.Analyze(ds, h.Config.MonthlyBudget, interval)
	if err != nil {
		logger.Warn("Cost analysis incomplete", zap.Error(err))
	}
	steps = append(steps, outcome(StepAnalyze, err))

	signal := h.detector().Detect(ds)
	if signal != nil {
		logger.Warn("Cost spike detected",
			zap.String("date", signal.Date),
			zap.Float64("increase_percent", signal.IncreasePercent),
			zap.String("severity", signal.Severity),
		)
	}

	startDate, endDate := ds.Period()
	period := fmt.Sprintf("%s to %s", startDate, endDate)

	var breakdown *chargeback.Report
	allocations, err := h.allocator().Allocate(ds)
	if err != nil {
		logger.Warn("Cost breakdown failed", zap.Error(err))
	} else {
		breakdown = chargeback.GenerateReport(allocations, period)
	}
	steps = append(steps, outcome(StepBreakdown, err))

	var top []chargeback.ServiceCost
	if breakdown != nil {
		top = breakdown.TopServices(topServices)
	}

	summaryText := h.summarize(ctx, insights.Input{
		Dataset:     ds,
		Summary:     summary,
		Signal:      signal,
		TopServices: top,
	})
	steps = append(steps, outcome(StepInsights, summaryText.Err))

	alert := notifier.BudgetAlert(summary, h.Config.AlertThreshold)

	err = h.storeArtifacts(ctx, reporter.ReportData{
		Period:      period,
		Dataset:     ds,
		Summary:     summary,
		Signal:      signal,
		Chargeback:  breakdown,
		Insights:    summaryText.Text,
		Alert:       alert,
		GeneratedAt: now,
	})
	if err != nil {
		logger.Warn("Failed to store report artifacts", zap.Error(err))
	}
	steps = append(steps, outcome(StepArtifacts, err))

	err = errors.New("no publisher configured")
	if h.Publisher != nil {
		err = h.Publisher.Publish(ctx, notifier.Report{
			Summary:        summary,
			Signal:         signal,
			Text:           summaryText.Text,
			TopServices:    top,
			AlertThreshold: h.Config.AlertThreshold,
			Period:         period,
			Mocked:         ds.Mocked,
			GeneratedBy:    string(summaryText.Source),
		})
	}
	if err != nil {
		logger.Warn("Report was not delivered", zap.Error(err))
	}
	steps = append(steps, outcome(StepPublish, err))

	logger.Info("Cost report complete",
		zap.Float64("total_cost", summary.TotalCost),
		zap.String("trend", string(summary.Trend)),
		zap.Bool("anomaly", signal != nil),
	)

	return ReportResponse{
		Status:          "success",
		RunID:           runID,
		Summary:         summaryText.Text,
		TotalCost:       summary.TotalCost,
		AnomalyDetected: signal != nil,
		Metrics:         &summary,
		Anomaly:         signal,
		Steps:           steps,
	}
}

func (h *ReportHandler) storeDataset(ctx context.Context, ds *costdata.Dataset) (string, error) {
	if h.Store == nil {
		return "", errors.New("no report store configured")
	}
	return h.Store.SaveDataset(ctx, ds)
}

func (h *ReportHandler) storeArtifacts(ctx context.Context, data reporter.ReportData) error {
	if h.Store == nil || h.Reporter == nil {
		return errors.New("no report store configured")
	}

	artifacts, err := h.Reporter.Render(data)
	if err != nil {
		return err
	}

	var errs []error
	for _, a := range artifacts {
		if _, err := h.Store.SaveArtifact(ctx, a.Ext, a.ContentType, a.Body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Ext, err))
		}
	}
	return errors.Join(errs...)
}

func (h *ReportHandler) summarize(ctx context.Context, in insights.Input) insights.Result {
	if h.Insights == nil {
		return insights.Result{Text: insights.Fallback(in), Source: insights.SourceFallback, Err: insights.ErrNotConfigured}
	}
	return h.Insights.Generate(ctx, in)
}

func (h *ReportHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *ReportHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

func (h *ReportHandler) lookback() int {
	if h.Config.LookbackDays < 1 {
		return 30
	}
	return h.Config.LookbackDays
}

func (h *ReportHandler) detector() *anomaly.Detector {
	if h.Detector == nil {
		return anomaly.NewDetector(anomaly.DetectorConfig{})
	}
	return h.Detector
}

func (h *ReportHandler) allocator() *chargeback.Allocator {
	if h.Allocator == nil {
		return chargeback.NewAllocator(chargeback.AllocatorConfig{})
	}
	return h.Allocator
}
