package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"linkedin-optimizer/internal/bootstrap"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/telemetry"
	"linkedin-optimizer/internal/workerproc"
	"linkedin-optimizer/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	queueURL := strings.TrimSpace(cfg.QueueURL)
	if queueURL == "" {
		log.Fatal("OPTIMIZER_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	process := func(ctx context.Context, body string) (*workflow.FinalResult, error) {
		return workerproc.HandleMessage(ctx, app, body)
	}

	// In-flight jobs keep running after a signal so they can delete their
	// messages; the shutdown timeout bounds the wait.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var g errgroup.Group
	g.SetLimit(max(1, cfg.WorkerConcurrency))

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          queueURL,
		"concurrency":        cfg.WorkerConcurrency,
		"visibility_seconds": cfg.VisibilityTimeoutSeconds,
	})

	poll(ctx, sqsClient, queueURL, int32(cfg.VisibilityTimeoutSeconds), func(m sqstypes.Message) {
		metrics.IncJobsReceived()
		g.Go(func() error {
			handleMessage(jobCtx, sqsClient, queueURL, process, m)
			return nil
		})
	})

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	telemetry.Info("worker.draining", map[string]any{"timeout": shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		cancelJobs()
		telemetry.Warn("worker.drain_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type processFunc func(ctx context.Context, body string) (*workflow.FinalResult, error)

// poll long-polls the queue until ctx is done. dispatch may block when the
// worker pool is full.
func poll(ctx context.Context, client sqsAPI, queueURL string, visibility int32, dispatch func(sqstypes.Message)) {
	for ctx.Err() == nil {
		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, msg := range resp.Messages {
			if ctx.Err() != nil {
				return
			}
			dispatch(msg)
		}
	}
}

// handleMessage runs one optimization. Unparseable messages are deleted;
// infrastructure failures leave the message for redelivery. A workflow run
// that ends with success=false has already persisted its failure and is
// deleted like a success.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, process processFunc, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		event := "worker.optimization.decode_failed"
		var (
			empty   workerproc.ErrEmptyBody
			missing workerproc.ErrMissingField
		)
		switch {
		case errors.As(err, &empty):
			event = "worker.optimization.empty_body"
		case errors.As(err, &missing):
			event = "worker.optimization.missing_field"
			fields["field"] = missing.Field
			if missing.RequestID != "" {
				fields["request_id"] = missing.RequestID
			}
		default:
			fields["error"] = err.Error()
		}
		telemetry.Error(event, fields)
		if deleteMessage(ctx, client, queueURL, msg, "", "") {
			metrics.IncJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.optimization.received", baseFields(msg, decoded.OptimizationID, decoded.RequestID))

	res, err := process(workerproc.WithParsedMessage(ctx, decoded), body)
	if err != nil {
		fields := baseFields(msg, decoded.OptimizationID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.optimization.failed", fields)
		metrics.IncJobsFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.OptimizationID, decoded.RequestID) {
		fields := baseFields(msg, decoded.OptimizationID, decoded.RequestID)
		if res != nil {
			fields["success"] = res.Success
			fields["status"] = res.Status
		}
		telemetry.Info("worker.optimization.completed", fields)
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, optimizationID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, optimizationID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.optimization.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, optimizationID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.optimization.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, optimizationID, requestID string) map[string]any {
	fields := map[string]any{
		"optimization_id": optimizationID,
		"sqs_message_id":  aws.ToString(msg.MessageId),
		"receive_count":   receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
