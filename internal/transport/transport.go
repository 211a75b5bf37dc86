// Package transport instruments outgoing HTTP requests.
package transport

import (
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
)

// LoggingTransport logs every request and its outcome. It never retries
type LoggingTransport struct {
	base http.RoundTripper
}

// WithLogging wraps base, or http.DefaultTransport if base is nil
func WithLogging(base http.RoundTripper) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := clog.FromContext(req.Context()).With(
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		log.With("duration", elapsed, "error", err).Warn("HTTP request failed")
		return resp, err
	}

	log = log.With("status", resp.StatusCode, "duration", elapsed)
	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn("HTTP request returned an error status")
	} else {
		log.Debug("HTTP request completed")
	}
	return resp, nil
}
