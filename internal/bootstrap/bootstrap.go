// Package bootstrap builds the application components from configuration
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
	"github.com/lvonguyen/cost-reporter/internal/config"
	"github.com/lvonguyen/cost-reporter/internal/handler"
	"github.com/lvonguyen/cost-reporter/internal/insights"
	"github.com/lvonguyen/cost-reporter/internal/notifier"
	"github.com/lvonguyen/cost-reporter/internal/providers"
	"github.com/lvonguyen/cost-reporter/internal/reporter"
	"github.com/lvonguyen/cost-reporter/internal/scheduler"
	"github.com/lvonguyen/cost-reporter/internal/storage"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	AWS       aws.Config
	Store     *storage.Store
	Source    providers.Source
	Insights  *insights.Generator
	Publisher *notifier.Publisher

	gemini *insights.GeminiClient
}

// New loads AWS credentials and builds the reporting components
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.RoleARN)
	if err != nil {
		return nil, err
	}
	return NewWithAWS(ctx, cfg, awsCfg, logger)
}

// NewWithAWS builds the reporting components on an already loaded AWS config
func NewWithAWS(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		AWS:    awsCfg,
		Store: storage.NewFromConfig(awsCfg, storage.Config{
			Bucket: cfg.Storage.Bucket,
			Prefix: cfg.Storage.ReportPrefix,
		}, logger),
		Publisher: notifier.NewPublisher(notifier.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Timeout:    cfg.Slack.Timeout,
			Links:      notifier.Links{DashboardURL: cfg.Slack.DashboardURL},
		}, logger),
	}

	source, err := NewSource(cfg, awsCfg, app.Store, logger)
	if err != nil {
		return nil, err
	}
	app.Source = source

	var client insights.TextGenerator
	if cfg.AI.APIKey != "" {
		gemini, err := insights.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			logger.Warn("AI client unavailable, summaries will use the template", zap.Error(err))
		} else {
			app.gemini = gemini
			client = gemini
		}
	} else {
		logger.Info("No AI API key configured, summaries will use the template")
	}
	app.Insights = insights.NewGenerator(client, insights.Config{
		Timeout:      cfg.AI.Timeout,
		PromptBudget: cfg.AI.PromptBudget,
	}, logger)

	return app, nil
}

// NewSource picks the dataset source named in cfg
func NewSource(cfg *config.Config, awsCfg aws.Config, store *storage.Store, logger *zap.Logger) (providers.Source, error) {
	switch cfg.Report.Source {
	case config.SourceS3:
		return providers.NewS3Source(store, cfg.Storage.Key), nil
	case config.SourceCostExplorer:
		return providers.NewCostExplorerFromConfig(awsCfg, logger), nil
	case config.SourceMock:
		return providers.NewMockSource(time.Now().UnixNano()), nil
	default:
		return nil, fmt.Errorf("unknown report source %q", cfg.Report.Source)
	}
}

// ReportHandler returns the reporting entry point
func (a *App) ReportHandler() *handler.ReportHandler {
	return &handler.ReportHandler{
		Source:    a.Source,
		Store:     a.Store,
		Insights:  a.Insights,
		Publisher: a.Publisher,
		Reporter:  reporter.New(),
		Detector:  anomaly.NewDetector(anomaly.DetectorConfig{}),
		Allocator: chargeback.NewAllocator(chargeback.AllocatorConfig{}),
		Config: handler.ReportConfig{
			MonthlyBudget:   a.Config.Report.MonthlyBudget,
			IntervalMinutes: a.Config.Report.IntervalMinutes,
			AlertThreshold:  a.Config.Report.AlertThreshold,
			LookbackDays:    a.Config.Report.LookbackDays,
		},
		Logger: a.Logger,
	}
}

// Close releases the AI client
func (a *App) Close() error {
	if a.gemini != nil {
		return a.gemini.Close()
	}
	return nil
}

// NewScheduler builds the schedule entry point alone. It needs no storage,
// source, AI or webhook settings.
func NewScheduler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*handler.ScheduleHandler, error) {
	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.RoleARN)
	if err != nil {
		return nil, err
	}
	return NewSchedulerWithAWS(cfg, awsCfg, logger), nil
}

// NewSchedulerWithAWS builds the schedule entry point on a loaded AWS config
func NewSchedulerWithAWS(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *handler.ScheduleHandler {
	manager := scheduler.NewFromConfig(awsCfg, scheduler.Config{
		RuleName:        cfg.Scheduler.RuleName,
		TargetID:        cfg.Scheduler.TargetID,
		Region:          cfg.AWS.Region,
		AccountID:       cfg.AWS.AccountID,
		DefaultInterval: cfg.Report.IntervalMinutes,
	}, logger)

	return &handler.ScheduleHandler{
		Manager:     manager,
		FunctionARN: cfg.Scheduler.FunctionARN,
		Logger:      logger,
	}
}
