package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSendsAttributes(t *testing.T) {
	fake := &fakeSender{}
	c := &SQSClient{api: fake, queueURL: "https://sqs.local/queue"}
	msg := NewMessage("opt-123456", "req-9", "uploads/ab/x.pdf", "x.pdf", "", time.Now())

	if err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	in := fake.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/queue" {
		t.Fatalf("queue url = %q", aws.ToString(in.QueueUrl))
	}
	if got := aws.ToString(in.MessageAttributes[AttrOptimizationID].StringValue); got != "opt-123456" {
		t.Fatalf("optimization attribute = %q", got)
	}
	if got := aws.ToString(in.MessageAttributes[AttrRequestID].StringValue); got != "req-9" {
		t.Fatalf("request attribute = %q", got)
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil || decoded.ObjectKey != "uploads/ab/x.pdf" {
		t.Fatalf("body did not round trip: %+v, %v", decoded, err)
	}
}

func TestSQSClientRejectsIncompleteMessage(t *testing.T) {
	fake := &fakeSender{}
	c := &SQSClient{api: fake, queueURL: "q"}
	err := c.Send(context.Background(), Message{OptimizationID: "opt-123456"})
	if err == nil || !strings.Contains(err.Error(), "object key") {
		t.Fatalf("expected missing object key error, got %v", err)
	}
	if len(fake.inputs) != 0 {
		t.Fatal("incomplete message should not be sent")
	}
}

func TestSQSClientWrapsSendError(t *testing.T) {
	c := &SQSClient{api: &fakeSender{err: errors.New("throttled")}, queueURL: "q"}
	err := c.Send(context.Background(), Message{OptimizationID: "opt-123456", ObjectKey: "k"})
	if err == nil || !strings.Contains(err.Error(), "optimization=opt-123456") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "us-east-1", "  "); err == nil {
		t.Fatal("expected error for blank queue url")
	}
}
