package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"linkedin-optimizer/internal/queue"
	"linkedin-optimizer/internal/workerproc"
	"linkedin-optimizer/internal/workflow"
)

type fakeSQS struct {
	deleted  []string
	received int
	messages []sqstypes.Message
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received++
	msgs := f.messages
	f.messages = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func processWith(res *workflow.FinalResult, err error) (processFunc, *int) {
	calls := 0
	return func(ctx context.Context, body string) (*workflow.FinalResult, error) {
		calls++
		return res, err
	}, &calls
}

func validMessage(t *testing.T, id, receipt string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{OptimizationID: id, RequestID: "req-" + id, ObjectKey: "optimizations/" + id + "/upload.pdf"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	process, calls := processWith(&workflow.FinalResult{Success: true}, nil)

	handleMessage(context.Background(), client, "queue", process, validMessage(t, "opt-000001", "r1"))

	if *calls != 1 {
		t.Fatalf("expected one process call, got %d", *calls)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestWorkerDeletesFailedRun(t *testing.T) {
	client := &fakeSQS{}
	process, _ := processWith(&workflow.FinalResult{Success: false, Status: "Failed to analyze profile"}, nil)

	handleMessage(context.Background(), client, "queue", process, validMessage(t, "opt-000002", "r2"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDoesNotDeleteOnProcessError(t *testing.T) {
	client := &fakeSQS{}
	process, _ := processWith(nil, workerproc.ErrProcess{OptimizationID: "opt-000003", Err: errors.New("boom")})

	handleMessage(context.Background(), client, "queue", process, validMessage(t, "opt-000003", "r3"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnparseableMessages(t *testing.T) {
	cases := map[string]string{
		"invalid json":    "{bad-json",
		"empty body":      "   ",
		"missing id":      `{"objectKey":"k"}`,
		"missing obj key": `{"optimizationId":"opt-000004"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := &fakeSQS{}
			process, calls := processWith(nil, nil)
			msg := sqstypes.Message{
				MessageId:     aws.String("m"),
				ReceiptHandle: aws.String("r"),
				Body:          aws.String(body),
			}

			handleMessage(context.Background(), client, "queue", process, msg)

			if *calls != 0 {
				t.Fatalf("expected no processing, got %d", *calls)
			}
			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
		})
	}
}

func TestPollDispatchesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeSQS{messages: []sqstypes.Message{validMessage(t, "opt-000005", "r5")}}

	var got []string
	poll(ctx, client, "queue", 30, func(m sqstypes.Message) {
		got = append(got, aws.ToString(m.MessageId))
		cancel()
	})

	if len(got) != 1 || got[0] != "m-opt-000005" {
		t.Fatalf("unexpected dispatch %v", got)
	}
	if client.received != 1 {
		t.Fatalf("expected one receive, got %d", client.received)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	msg := sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	if got := receiveCount(msg); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
