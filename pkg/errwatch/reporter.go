package errwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Session is the per-visit context attached to every outgoing report
type Session struct {
	UserID       string
	SessionID    string
	PageLoadTime float64
	NetworkSpeed string
	DeviceInfo   string
}

// wireReport is the ingest endpoint's wire envelope: the event plus session
// context.
type wireReport struct {
	ErrorEvent
	UserID       string  `json:"userId,omitempty"`
	SessionID    string  `json:"sessionId,omitempty"`
	PageLoadTime float64 `json:"pageLoadTime,omitempty"`
	NetworkSpeed string  `json:"networkSpeed,omitempty"`
	DeviceInfo   string  `json:"deviceInfo,omitempty"`
}

// Reporter delivers captured events to the ingestion endpoint with a single
// best-effort call. No retry on failure: the watcher's buffer already
// retains the observation for later inspection.
type Reporter struct {
	endpoint string
	client   *http.Client
	session  Session
	log      zerolog.Logger
}

// NewReporter creates a reporter posting to endpoint. A nil client uses
// http.DefaultClient. The reporter's own HTTP calls are never instrumented,
// so a failing ingest endpoint cannot feed back into itself.
func NewReporter(endpoint string, client *http.Client, session Session, log zerolog.Logger) *Reporter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Reporter{endpoint: endpoint, client: client, session: session, log: log}
}

// Attach subscribes the reporter to the watcher so every captured event is
// forwarded. Returns the unsubscribe function.
func (r *Reporter) Attach(w *Watcher) func() {
	return w.Subscribe(func(e ErrorEvent) {
		r.Report(context.Background(), e)
	})
}

// Report sends one event. Transport failures and non-success statuses are
// logged and dropped.
func (r *Reporter) Report(ctx context.Context, e ErrorEvent) {
	body, err := json.Marshal(wireReport{
		ErrorEvent:   e,
		UserID:       r.session.UserID,
		SessionID:    r.session.SessionID,
		PageLoadTime: r.session.PageLoadTime,
		NetworkSpeed: r.session.NetworkSpeed,
		DeviceInfo:   r.session.DeviceInfo,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("errwatch: report marshal failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.log.Warn().Err(err).Msg("errwatch: report request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Msg("errwatch: report delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		r.log.Warn().Err(fmt.Errorf("status %d", resp.StatusCode)).Msg("errwatch: report rejected")
	}
}
