package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Attribute names copied onto every message so queue tooling can find an
// optimization without decoding the body.
const (
	AttrOptimizationID = "optimization_id"
	AttrRequestID      = "request_id"
	AttrVersion        = "version"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient enqueues optimization jobs on an SQS queue.
type SQSClient struct {
	api      sqsSender
	queueURL string
}

// NewSQSClient resolves AWS credentials and returns a client for queueURL.
func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("OPTIMIZER_SQS_QUEUE_URL is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{api: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	if field := msg.MissingField(); field != "" {
		return fmt.Errorf("sqs send: message missing %s", field)
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	out, err := s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attributes(msg),
	})
	if err != nil {
		return fmt.Errorf("sqs send optimization=%s: %w", msg.OptimizationID, err)
	}
	if out == nil || aws.ToString(out.MessageId) == "" {
		return fmt.Errorf("sqs send optimization=%s: no message id returned", msg.OptimizationID)
	}
	return nil
}

func attributes(msg Message) map[string]sqstypes.MessageAttributeValue {
	attrs := map[string]sqstypes.MessageAttributeValue{
		AttrOptimizationID: stringAttr(msg.OptimizationID),
		AttrVersion: {
			DataType:    aws.String("Number"),
			StringValue: aws.String(fmt.Sprint(msg.Version)),
		},
	}
	if msg.RequestID != "" {
		attrs[AttrRequestID] = stringAttr(msg.RequestID)
	}
	return attrs
}

func stringAttr(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

var (
	_ Client = (*SQSClient)(nil)
	_ Client = (*MemoryClient)(nil)
)
