// Package main is the reporting Lambda function.
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
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cost reporter", zap.Error(err))
	}
	defer app.Close()

	logger.Info("Cost report function ready",
		zap.String("source", app.Source.Name()),
		zap.String("bucket", app.Store.Bucket()),
	)

	lambda.Start(app.ReportHandler().Handle)
}
