// Package errwatch is the client-side half of the error telemetry pipeline.
// A host application registers a Watcher at its hook points (uncaught
// exceptions, unhandled rejections, console diagnostics, HTTP responses);
// the watcher keeps a bounded local buffer of observations and a Reporter
// forwards them to the ingestion endpoint, fire-and-forget.
//
// Instrumentation is purely observational: nothing the watcher wraps changes
// its result or error for the rest of the program.
package errwatch

import "time"

// EventType classifies how a failure was captured
type EventType string

const (
	RuntimeError       EventType = "runtime_error"
	UnhandledRejection EventType = "unhandled_rejection"
	ConsoleWarning     EventType = "console_warning"
	ConsoleError       EventType = "console_error"
	NetworkError       EventType = "network_error"
)

// ErrorEvent is one captured failure observation
type ErrorEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	URL       string    `json:"url"`
	UserAgent string    `json:"userAgent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExceptionInfo describes an uncaught exception at its source location
type ExceptionInfo struct {
	Message  string
	Filename string
	Line     int
	Column   int
	Stack    string
}

// RejectionInfo describes an unhandled promise/async rejection
type RejectionInfo struct {
	Reason string
	Stack  string
}

// HTTPCallInfo describes a finished HTTP call for network interception
type HTTPCallInfo struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Err        error
}
