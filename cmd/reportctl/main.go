// Package main provides the cost report operator CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/bootstrap"
	"github.com/lvonguyen/cost-reporter/internal/config"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/handler"
	"github.com/lvonguyen/cost-reporter/internal/logging"
	"github.com/lvonguyen/cost-reporter/internal/scheduler"
)

// Options holds command line options
type Options struct {
	Mode       string // report, schedule, status, mock, test-webhook
	ConfigPath string
	Action     string // create, update, delete for schedule mode
	Interval   int
	RuleName   string
	LambdaARN  string
	Days       int
	Seed       int64
	Output     string
	Upload     bool
	Verbose    bool
}

func main() {
	opts := parseFlags()

	var logger *zap.Logger
	var err error
	if opts.Verbose {
		logger, err = logging.New("debug", true)
	} else {
		logger, err = logging.New("info", false)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting cost report CLI",
		zap.String("mode", opts.Mode),
		zap.String("config", opts.ConfigPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	var execErr error
	switch opts.Mode {
	case "report":
		execErr = runReport(ctx, opts, logger)
	case "schedule":
		execErr = runSchedule(ctx, opts, logger)
	case "status":
		opts.Action = string(scheduler.ActionQuery)
		execErr = runSchedule(ctx, opts, logger)
	case "mock":
		execErr = runMock(ctx, opts, logger)
	case "test-webhook":
		execErr = runTestWebhook(ctx, opts, logger)
	default:
		logger.Fatal("Unknown mode", zap.String("mode", opts.Mode))
	}

	if execErr != nil {
		logger.Error("Execution failed", zap.Error(execErr))
		os.Exit(1)
	}
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.Mode, "mode", "report", "Mode: report, schedule, status, mock, test-webhook")
	flag.StringVar(&opts.ConfigPath, "config", os.Getenv("COST_REPORT_CONFIG"), "Path to config file")
	flag.StringVar(&opts.Action, "action", "create", "Schedule action: create, update, delete")
	flag.IntVar(&opts.Interval, "interval", 0, "Schedule interval in minutes (default from config)")
	flag.StringVar(&opts.RuleName, "rule", "", "Schedule rule name (default from config)")
	flag.StringVar(&opts.LambdaARN, "lambda-arn", "", "Reporting function ARN (default from config)")
	flag.IntVar(&opts.Days, "days", 30, "Days of mock data")
	flag.Int64Var(&opts.Seed, "seed", 0, "Mock data seed (0 uses the clock)")
	flag.StringVar(&opts.Output, "output", "mock_costs.json", "Output file for mock data")
	flag.BoolVar(&opts.Upload, "upload", false, "Upload mock data to the configured bucket and key")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	return opts
}

func newApp(ctx context.Context, opts *Options, logger *zap.Logger) (*bootstrap.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, logger)
}

// runReport runs the reporting flow once
func runReport(ctx context.Context, opts *Options, logger *zap.Logger) error {
	app, err := newApp(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	resp := app.ReportHandler().Run(ctx, handler.ReportRequest{
		ReportIntervalMinutes: opts.Interval,
		Source:                "reportctl",
	})
	if resp.Status != "success" {
		return errors.New(resp.Message)
	}

	printSummary(resp)
	return nil
}

// runSchedule sends a schedule request through the same path as the function
func runSchedule(ctx context.Context, opts *Options, logger *zap.Logger) error {
	cfg, err := config.LoadScheduler(opts.ConfigPath)
	if err != nil {
		return err
	}
	h, err := bootstrap.NewScheduler(ctx, cfg, logger)
	if err != nil {
		return err
	}

	resp, err := h.Handle(ctx, scheduler.Request{
		Action:          scheduler.Action(opts.Action),
		IntervalMinutes: opts.Interval,
		RuleName:        opts.RuleName,
		LambdaARN:       opts.LambdaARN,
	})
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))

	if resp.Status != scheduler.StatusSuccess {
		return errors.New(resp.Message)
	}
	return nil
}

// runMock writes a generated dataset to a file or the configured object
func runMock(ctx context.Context, opts *Options, logger *zap.Logger) error {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -opts.Days)
	ds := costdata.NewMockGenerator(seed).Build(start, opts.Days)

	body, err := ds.Marshal()
	if err != nil {
		return err
	}

	if !opts.Upload {
		if err := os.WriteFile(opts.Output, body, 0o644); err != nil {
			return fmt.Errorf("failed to write mock data: %w", err)
		}
		logger.Info("Mock data written", zap.String("path", opts.Output), zap.Int("days", ds.Len()))
		return nil
	}

	app, err := newApp(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store.Put(ctx, app.Config.Storage.Key, "application/json", body); err != nil {
		return err
	}
	logger.Info("Mock data uploaded",
		zap.String("bucket", app.Store.Bucket()),
		zap.String("key", app.Config.Storage.Key),
		zap.Int("days", ds.Len()),
	)
	return nil
}

// runTestWebhook sends a short message to verify the webhook
func runTestWebhook(ctx context.Context, opts *Options, logger *zap.Logger) error {
	app, err := newApp(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	msg := fmt.Sprintf("✅ Cost reporter webhook test at %s", time.Now().UTC().Format(time.RFC3339))
	if err := app.Publisher.SendText(ctx, msg); err != nil {
		return fmt.Errorf("webhook test failed: %w", err)
	}
	logger.Info("Webhook test message sent")
	return nil
}

// printSummary prints the report summary
func printSummary(resp handler.ReportResponse) {
	s := resp.Metrics
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      AWS Cost Report                             ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Total Spend: $%.2f over %d days\n", s.TotalCost, s.Days)
	fmt.Printf("║  Avg Daily: $%.2f  Projected Monthly: $%.2f\n", s.AvgDailyCost, s.ProjectedMonthly)
	fmt.Printf("║  Trend: %s  Budget Used: %.1f%%\n", s.Trend, s.BudgetUsagePercent)
	if resp.Anomaly != nil {
		fmt.Printf("║  Spike: %s $%.2f (+%.1f%%, %s)\n", resp.Anomaly.Date, resp.Anomaly.Current, resp.Anomaly.IncreasePercent, resp.Anomaly.Severity)
	}
	fmt.Println("║")
	fmt.Println("║  Steps:")
	for _, step := range resp.Steps {
		status := "ok"
		if !step.OK {
			status = "failed: " + step.Reason
		}
		fmt.Printf("║    %-10s %s\n", step.Step, status)
	}
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println(resp.Summary)
}
