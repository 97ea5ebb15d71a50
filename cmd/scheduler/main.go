// Package main is the dynamic scheduler Lambda function.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/bootstrap"
	"github.com/lvonguyen/cost-reporter/internal/config"
	"github.com/lvonguyen/cost-reporter/internal/logging"
)

func main() {
	cfg, err := config.SchedulerFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	h, err := bootstrap.NewScheduler(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize scheduler", zap.Error(err))
	}

	logger.Info("Dynamic scheduler function ready", zap.String("rule", cfg.Scheduler.RuleName))

	lambda.Start(h.Handle)
}
