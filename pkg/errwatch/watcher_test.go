package errwatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_BufferBoundedNewestFirst(t *testing.T) {
	w := New(Options{MaxErrors: 100})

	for i := 0; i < 150; i++ {
		w.OnUncaughtException(ExceptionInfo{Message: fmt.Sprintf("error %d", i)})
	}

	events := w.Events()
	require.Len(t, events, 100)
	assert.Equal(t, "error 149", events[0].Message)
	assert.Equal(t, "error 50", events[99].Message)
}

func TestWatcher_StampsPageContext(t *testing.T) {
	w := New(Options{PageURL: "https://app.example.com/dashboard", UserAgent: "test-agent"})

	w.OnUncaughtException(ExceptionInfo{Message: "boom", Filename: "app.js", Line: 10, Column: 5})

	events := w.Events()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, RuntimeError, e.Type)
	assert.Equal(t, "https://app.example.com/dashboard", e.URL)
	assert.Equal(t, "test-agent", e.UserAgent)
	assert.Equal(t, "app.js", e.Filename)
	assert.Equal(t, 10, e.Line)
	assert.False(t, e.Timestamp.IsZero())
}

func TestWatcher_UnhandledRejection(t *testing.T) {
	w := New(Options{})

	w.OnUnhandledRejection(RejectionInfo{Reason: "save failed", Stack: "at save (app.js:1)"})

	events := w.Events()
	require.Len(t, events, 1)
	assert.Equal(t, UnhandledRejection, events[0].Type)
	assert.Equal(t, "save failed", events[0].Message)
	assert.Equal(t, "at save (app.js:1)", events[0].Stack)
}

func TestWatcher_ConsoleEventLevels(t *testing.T) {
	w := New(Options{})

	w.OnConsoleEvent("error", "boom")
	w.OnConsoleEvent("warn", "careful")
	w.OnConsoleEvent("info", "ignored")
	w.OnConsoleEvent("log", "ignored too")

	events := w.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ConsoleWarning, events[0].Type)
	assert.Equal(t, ConsoleError, events[1].Type)
}

func TestWatcher_ConsoleEventStringifiesArgs(t *testing.T) {
	w := New(Options{})

	w.OnConsoleEvent("error", "failed:", nil, map[string]int{"count": 3}, errors.New("inner"), 42)

	events := w.Events()
	require.Len(t, events, 1)
	assert.Equal(t, `failed: null {"count":3} inner 42`, events[0].Message)
}

func TestWatcher_ConsoleEventUnserializableFallsBack(t *testing.T) {
	w := New(Options{})

	// channels cannot be JSON-serialized; fmt fallback applies
	ch := make(chan int)
	w.OnConsoleEvent("error", ch)

	events := w.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Message)
}

func TestWatcher_ConsoleEventAttachesStack(t *testing.T) {
	w := New(Options{})

	w.OnConsoleEvent("error", "boom")

	events := w.Events()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Stack, "watcher_test.go")
}

func TestWatcher_HTTPResponseFiltering(t *testing.T) {
	w := New(Options{})

	w.OnHTTPResponse(HTTPCallInfo{Method: "GET", URL: "/api/ok", Status: 200})
	w.OnHTTPResponse(HTTPCallInfo{Method: "GET", URL: "/api/redirect", Status: 302})
	w.OnHTTPResponse(HTTPCallInfo{Method: "GET", URL: "/api/missing", Status: 404, StatusText: "Not Found"})
	w.OnHTTPResponse(HTTPCallInfo{Method: "POST", URL: "/api/save", Err: errors.New("connection refused")})

	events := w.Events()
	require.Len(t, events, 2)
	assert.Equal(t, NetworkError, events[0].Type)
	assert.Contains(t, events[0].Message, "connection refused")
	assert.Contains(t, events[1].Message, "404 Not Found")
}

func TestWatcher_SubscribeAndUnsubscribe(t *testing.T) {
	w := New(Options{})

	var seen []string
	unsubscribe := w.Subscribe(func(e ErrorEvent) {
		seen = append(seen, e.Message)
	})

	w.OnUncaughtException(ExceptionInfo{Message: "first"})
	require.Equal(t, []string{"first"}, seen, "listener runs synchronously")

	unsubscribe()
	w.OnUncaughtException(ExceptionInfo{Message: "second"})
	assert.Equal(t, []string{"first"}, seen)
}

func TestWatcher_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errwatch.json")
	storage := NewFileStorage(path)

	w := New(Options{Storage: storage})
	w.OnUncaughtException(ExceptionInfo{Message: "persisted"})

	// A fresh watcher over the same storage sees the buffer
	reloaded := New(Options{Storage: storage})
	events := reloaded.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "persisted", events[0].Message)
}

func TestWatcher_BrokenStorageIsSwallowed(t *testing.T) {
	storage := NewFileStorage("/nonexistent-dir/errwatch.json")
	w := New(Options{Storage: storage})

	assert.NotPanics(t, func() {
		w.OnUncaughtException(ExceptionInfo{Message: "still captured"})
	})
	assert.Len(t, w.Events(), 1)
}
