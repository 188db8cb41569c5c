package errwatch

import "net/http"

// observedTransport intercepts HTTP calls without altering them
type observedTransport struct {
	inner   http.RoundTripper
	watcher *Watcher
}

// WrapTransport returns a RoundTripper that reports transport failures and
// non-success statuses to the watcher. The original response and error pass
// through untouched, so wrapping is invisible to the client.
//
// Wrapping is idempotent: a transport already observed by this watcher is
// returned as-is, so repeated initialization does not double-report.
func WrapTransport(rt http.RoundTripper, w *Watcher) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if ot, ok := rt.(*observedTransport); ok && ot.watcher == w {
		return rt
	}
	return &observedTransport{inner: rt, watcher: w}
}

// Instrument wraps an http.Client's transport in place and returns the same
// client, for call sites that own their client.
func Instrument(client *http.Client, w *Watcher) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	client.Transport = WrapTransport(client.Transport, w)
	return client
}

func (t *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)

	info := HTTPCallInfo{
		Method: req.Method,
		URL:    req.URL.String(),
		Err:    err,
	}
	if resp != nil {
		info.Status = resp.StatusCode
		info.StatusText = http.StatusText(resp.StatusCode)
	}
	t.watcher.OnHTTPResponse(info)

	return resp, err
}
