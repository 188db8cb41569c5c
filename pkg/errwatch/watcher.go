package errwatch

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// DefaultMaxErrors bounds the local ring buffer
const DefaultMaxErrors = 100

// Storage mirrors the buffer to durable client-side storage. Both methods
// are best-effort: the watcher swallows their errors.
type Storage interface {
	Save(events []ErrorEvent) error
	Load() ([]ErrorEvent, error)
}

// Options configures a Watcher
type Options struct {
	// MaxErrors bounds the ring buffer (default 100)
	MaxErrors int
	// Storage, when set, is mirrored on every insert and loaded once here
	Storage Storage
	// PageURL and UserAgent stamp every captured event
	PageURL   string
	UserAgent string
	// Clock overrides time.Now in tests
	Clock func() time.Time
}

// Watcher collects failure observations from the host's hook points into a
// bounded most-recent-first buffer and notifies subscribers synchronously.
type Watcher struct {
	mu        sync.Mutex
	events    []ErrorEvent
	max       int
	storage   Storage
	pageURL   string
	userAgent string
	now       func() time.Time

	listeners map[int]func(ErrorEvent)
	nextSub   int
}

// New creates a Watcher and reloads any persisted buffer state
func New(opts Options) *Watcher {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	w := &Watcher{
		max:       opts.MaxErrors,
		storage:   opts.Storage,
		pageURL:   opts.PageURL,
		userAgent: opts.UserAgent,
		now:       opts.Clock,
		listeners: make(map[int]func(ErrorEvent)),
	}
	if w.storage != nil {
		if loaded, err := w.storage.Load(); err == nil && len(loaded) > 0 {
			if len(loaded) > w.max {
				loaded = loaded[:w.max]
			}
			w.events = loaded
		}
	}
	return w
}

// OnUncaughtException records an uncaught exception
func (w *Watcher) OnUncaughtException(info ExceptionInfo) {
	w.record(ErrorEvent{
		Type:     RuntimeError,
		Message:  info.Message,
		Stack:    info.Stack,
		Filename: info.Filename,
		Line:     info.Line,
		Column:   info.Column,
	})
}

// OnUnhandledRejection records a rejection that no handler consumed
func (w *Watcher) OnUnhandledRejection(info RejectionInfo) {
	w.record(ErrorEvent{
		Type:    UnhandledRejection,
		Message: info.Reason,
		Stack:   info.Stack,
	})
}

// OnConsoleEvent records a console diagnostic. Only error and warn levels
// are captured; anything else is ignored. Arguments are stringified and a
// synthetic call-site stack is attached.
func (w *Watcher) OnConsoleEvent(level string, args ...interface{}) {
	var eventType EventType
	switch level {
	case "error":
		eventType = ConsoleError
	case "warn":
		eventType = ConsoleWarning
	default:
		return
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = stringifyArg(arg)
	}

	w.record(ErrorEvent{
		Type:    eventType,
		Message: strings.Join(parts, " "),
		Stack:   callSiteStack(3),
	})
}

// OnHTTPResponse records a failed HTTP call: a transport error or any
// non-success status (>= 400).
func (w *Watcher) OnHTTPResponse(info HTTPCallInfo) {
	if info.Err == nil && info.Status < 400 {
		return
	}

	var message string
	if info.Err != nil {
		message = fmt.Sprintf("%s %s failed: %v", info.Method, info.URL, info.Err)
	} else if info.StatusText != "" {
		message = fmt.Sprintf("%s %s failed: %d %s", info.Method, info.URL, info.Status, info.StatusText)
	} else {
		message = fmt.Sprintf("%s %s failed: %d", info.Method, info.URL, info.Status)
	}

	w.record(ErrorEvent{
		Type:    NetworkError,
		Message: message,
	})
}

// Subscribe registers a listener invoked synchronously for every new event.
// The returned function removes the listener.
func (w *Watcher) Subscribe(fn func(ErrorEvent)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// Events returns a snapshot of the buffer, most recent first
func (w *Watcher) Events() []ErrorEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ErrorEvent, len(w.events))
	copy(out, w.events)
	return out
}

func (w *Watcher) record(e ErrorEvent) {
	e.Timestamp = w.now()
	if e.URL == "" {
		e.URL = w.pageURL
	}
	if e.UserAgent == "" {
		e.UserAgent = w.userAgent
	}

	w.mu.Lock()
	w.events = append([]ErrorEvent{e}, w.events...)
	if len(w.events) > w.max {
		w.events = w.events[:w.max]
	}
	if w.storage != nil {
		// Best-effort mirror; a full or broken storage never blocks capture
		_ = w.storage.Save(w.events)
	}
	listeners := make([]func(ErrorEvent), 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// stringifyArg renders one console argument. Structured values serialize to
// JSON; values JSON cannot handle (cycles, channels) fall back to fmt.
func stringifyArg(arg interface{}) string {
	switch v := arg.(type) {
	case nil:
		return "null"
	case string:
		return v
	case error:
		return v.Error()
	}
	if data, err := json.Marshal(arg); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", arg)
}

// callSiteStack builds a synthetic stack for console captures, skipping the
// watcher's own frames.
func callSiteStack(skip int) string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
