// Package events contains the event contract definitions for WebSocket
// communication with the factor dashboard.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Regression lifecycle messages
	MessageTypeRunStarted   MessageType = "regression:started"
	MessageTypeRunCompleted MessageType = "regression:completed"
	MessageTypeRunFailed    MessageType = "regression:failed"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// RunSnapshot is the payload broadcast when a regression run changes state.
// The dashboard uses RunID to discard results from superseded requests: a
// client that changed parameters since RunID was issued ignores the event.
type RunSnapshot struct {
	RunID       string     `json:"run_id"`
	Status      string     `json:"status"` // running|completed|failed
	Tickers     []string   `json:"tickers"`
	Factors     []string   `json:"factors"`
	WindowSize  int        `json:"window_size"`
	Windows     int        `json:"windows,omitempty"`
	Skipped     int        `json:"skipped_windows,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"data"`
}
