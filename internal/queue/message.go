package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageVersion is the current payload version. Workers reject payloads
// from a newer producer instead of guessing at their shape.
const MessageVersion = 1

// Message asks a worker to run one optimization over an archived PDF.
type Message struct {
	OptimizationID string `json:"optimizationId"`
	RequestID      string `json:"requestId"`
	ObjectKey      string `json:"objectKey"`
	FileName       string `json:"fileName,omitempty"`
	TargetRole     string `json:"targetRole,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
	Version        int    `json:"version"`
}

// NewMessage stamps a message with the current version and enqueue time.
func NewMessage(optimizationID, requestID, objectKey, fileName, targetRole string, now time.Time) Message {
	return Message{
		OptimizationID: optimizationID,
		RequestID:      requestID,
		ObjectKey:      objectKey,
		FileName:       fileName,
		TargetRole:     targetRole,
		EnqueuedAt:     now.UTC().Format(time.RFC3339),
		Version:        MessageVersion,
	}
}

// MissingField names the first required field that is blank, or "".
func (m Message) MissingField() string {
	switch {
	case strings.TrimSpace(m.OptimizationID) == "":
		return "optimization id"
	case strings.TrimSpace(m.ObjectKey) == "":
		return "object key"
	}
	return ""
}

// QueuedFor reports how long the message waited, when EnqueuedAt parses.
func (m Message) QueuedFor(now time.Time) (time.Duration, bool) {
	at, err := time.Parse(time.RFC3339, m.EnqueuedAt)
	if err != nil {
		return 0, false
	}
	return now.Sub(at), true
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. A missing version is
// read as version 1.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version == 0 {
		msg.Version = 1
	}
	if msg.Version > MessageVersion {
		return msg, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
