// Package main runs the scheduled sync tick as an AWS Lambda behind an EventBridge schedule.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/matchvault/backend/config"
	"github.com/matchvault/backend/internal/app"
)

func main() {
	logger := app.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	// Connections are opened once per container and reused across invocations.
	a, err := app.Open(context.Background(), cfg, app.Options{}, logger)
	if err != nil {
		logger.Fatal("open app", zap.Error(err))
	}
	defer a.Close()

	lambda.Start(newHandler(a.Reconciler, a.Metrics, logger).handle)
}
