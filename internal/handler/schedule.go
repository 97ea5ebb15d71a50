package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/logging"
	"github.com/lvonguyen/cost-reporter/internal/scheduler"
)

// ScheduleHandler resolves the target function and forwards the request to
// the schedule manager
type ScheduleHandler struct {
	Manager     ScheduleManager
	FunctionARN string // configured reporting function
	Logger      *zap.Logger
}

// Handle is the function entry point
func (h *ScheduleHandler) Handle(ctx context.Context, req scheduler.Request) (scheduler.Response, error) {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger, _ = logging.ForRun(ctx, logger)

	invoked := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		invoked = lc.InvokedFunctionArn
	}
	req.LambdaARN = scheduler.ResolveFunctionARN(req.LambdaARN, h.FunctionARN, invoked)

	resp := h.Manager.Handle(ctx, req)
	logger.Info("Schedule request handled",
		zap.String("action", string(req.Action)),
		zap.String("status", resp.Status),
		zap.String("message", resp.Message),
	)
	return resp, nil
}
