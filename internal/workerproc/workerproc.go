package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"linkedin-optimizer/internal/bootstrap"
	"linkedin-optimizer/internal/queue"
	"linkedin-optimizer/internal/shared/storage/object"
	"linkedin-optimizer/internal/shared/telemetry"
	"linkedin-optimizer/internal/workflow"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingField indicates a message without a required field.
type ErrMissingField struct {
	Meta      MessageMeta
	Field     string
	RequestID string
}

func (e ErrMissingField) Error() string { return "missing " + e.Field }

// ErrProcess indicates processing failed after successful parsing. The
// message should be left on the queue for redelivery.
type ErrProcess struct {
	OptimizationID string
	RequestID      string
	Err            error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process optimization"
	}
	return "process optimization: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if field := msg.MissingField(); field != "" {
		return msg, meta, ErrMissingField{Meta: meta, Field: field, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context so HandleMessage
// does not decode the body twice.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessage(ctx context.Context, body string) (queue.Message, error) {
	if msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message); ok {
		return msg, nil
	}
	msg, _, err := ParseMessage(body)
	return msg, err
}

// HandleMessage parses the payload, loads the archived PDF and runs the
// workflow. A run that ends with success=false is still handled; only
// infrastructure failures are returned as ErrProcess.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) (*workflow.FinalResult, error) {
	msg, err := parsedMessage(ctx, body)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		return ErrProcess{OptimizationID: msg.OptimizationID, RequestID: msg.RequestID, Err: err}
	}
	if app == nil || app.Workflow == nil || app.Objects == nil {
		return nil, fail(errors.New("optimization workflow not configured"))
	}

	fields := map[string]any{
		"optimization_id": msg.OptimizationID,
		"request_id":      msg.RequestID,
		"object_key":      msg.ObjectKey,
	}
	if waited, ok := msg.QueuedFor(time.Now()); ok {
		fields["queued_ms"] = waited.Milliseconds()
	}
	telemetry.Info("worker.optimization.started", fields)

	pdf, err := loadObject(ctx, app.Objects, msg.ObjectKey)
	if err != nil {
		return nil, fail(err)
	}
	return app.Workflow.Run(ctx, workflow.Input{
		PDFBytes:   pdf,
		TargetRole: msg.TargetRole,
		RequestID:  msg.OptimizationID,
		Metadata: map[string]any{
			"file_name":  msg.FileName,
			"object_key": msg.ObjectKey,
			"request_id": msg.RequestID,
			"mode":       "async",
		},
	}), nil
}

func loadObject(ctx context.Context, store object.ObjectStore, key string) ([]byte, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read %s: archived document is empty", key)
	}
	return data, nil
}
