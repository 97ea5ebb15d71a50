package handler

import (
	"context"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/insights"
	"github.com/lvonguyen/cost-reporter/internal/notifier"
	"github.com/lvonguyen/cost-reporter/internal/scheduler"
)

// ReportStore persists the raw dataset and rendered artifacts
type ReportStore interface {
	SaveDataset(ctx context.Context, ds *costdata.Dataset) (string, error)
	SaveArtifact(ctx context.Context, ext, contentType string, body []byte) (string, error)
}

// SummaryWriter produces the natural-language summary
type SummaryWriter interface {
	Generate(ctx context.Context, in insights.Input) insights.Result
}

// Publisher delivers reports and failure notices
type Publisher interface {
	Publish(ctx context.Context, r notifier.Report) error
	NotifyError(ctx context.Context, cause error)
}

// ScheduleManager applies schedule requests
type ScheduleManager interface {
	Handle(ctx context.Context, req scheduler.Request) scheduler.Response
}

// Step names reported in Outcome
const (
	StepFetch     = "fetch"
	StepStoreRaw  = "store_raw"
	StepAnalyze   = "analyze"
	StepBreakdown = "breakdown"
	StepInsights  = "insights"
	StepArtifacts = "artifacts"
	StepPublish   = "publish"
)

// Outcome records how one step of the reporting flow went
type Outcome struct {
	Step   string `json:"step"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ReportRequest is the reporting entry point payload
type ReportRequest struct {
	ReportIntervalMinutes int    `json:"report_interval_minutes,omitempty"`
	Source                string `json:"source,omitempty"`
}

// ReportResponse is the reporting entry point result
type ReportResponse struct {
	Status          string            `json:"status"`
	Message         string            `json:"message,omitempty"`
	RunID           string            `json:"run_id,omitempty"`
	Summary         string            `json:"summary,omitempty"` // generated text
	TotalCost       float64           `json:"total_cost"`
	AnomalyDetected bool              `json:"anomaly_detected"`
	Metrics         *analyzer.Summary `json:"metrics,omitempty"`
	Anomaly         *anomaly.Signal   `json:"anomaly,omitempty"`
	Steps           []Outcome         `json:"steps,omitempty"`
}

// Step returns the outcome recorded for name
func (r ReportResponse) Step(name string) (Outcome, bool) {
	for _, o := range r.Steps {
		if o.Step == name {
			return o, true
		}
	}
	return Outcome{}, false
}

func outcome(step string, err error) Outcome {
	if err != nil {
		return Outcome{Step: step, OK: false, Reason: err.Error()}
	}
	return Outcome{Step: step, OK: true}
}
