package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"linkedin-optimizer/internal/bootstrap"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/telemetry"
	"linkedin-optimizer/internal/workerproc"
	"linkedin-optimizer/internal/workflow"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	telemetry.SetLevel(cfg.LogLevel)
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

type processFunc func(ctx context.Context, body string) (*workflow.FinalResult, error)

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": initErr.Error(), "records": len(event.Records)})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, event, func(ctx context.Context, body string) (*workflow.FinalResult, error) {
		return workerproc.HandleMessage(ctx, app, body)
	}), nil
}

// processBatch reports only retryable records as failures. Records that can
// never succeed are dropped so they do not loop through redelivery.
func processBatch(ctx context.Context, event events.SQSEvent, process processFunc) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncJobsReceived()
		res, err := process(ctx, record.Body)
		if err == nil {
			fields := map[string]any{"sqs_message_id": record.MessageId}
			if res != nil {
				fields["optimization_id"] = res.OptimizationID
				fields["success"] = res.Success
			}
			telemetry.Info("worker.optimization.completed", fields)
			continue
		}

		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) {
			telemetry.Error("worker.optimization.failed", map[string]any{
				"sqs_message_id":  record.MessageId,
				"optimization_id": procErr.OptimizationID,
				"request_id":      procErr.RequestID,
				"error":           err.Error(),
			})
			metrics.IncJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}

		telemetry.Error("worker.optimization.unrecoverable", map[string]any{
			"sqs_message_id": record.MessageId,
			"error":          err.Error(),
		})
		metrics.IncJobsDeletedUnrecoverable()
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
