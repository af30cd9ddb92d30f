package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoEmitsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := SetLogger(zap.New(core))
	defer SetLogger(prev)

	Info("workflow.stage.completed", map[string]any{
		"request_id": "opt-123",
		"stage":      "collect_profile",
	})
	Error("workflow.stage.failed", map[string]any{"error": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["request_id"] != "opt-123" || ctx["stage"] != "collect_profile" {
		t.Fatalf("unexpected fields: %#v", ctx)
	}
	if got := entries[1].ContextMap()["error"]; got != "boom" {
		t.Fatalf("expected error field boom, got %#v", got)
	}
}

func TestSetLoggerNilUsesNop(t *testing.T) {
	prev := SetLogger(nil)
	defer SetLogger(prev)
	Warn("ignored", nil)
}
