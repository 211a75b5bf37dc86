package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainguard-dev/clog"
	"github.com/stretchr/testify/require"
)

func logCapture(t *testing.T) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := clog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return clog.WithLogger(context.Background(), logger), &buf
}

func TestLoggingTransport(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, buf := logCapture(t)
	client := &http.Client{Transport: WithLogging(nil)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/repos/octo/widgets/issues/1", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, 1, calls, "requests must not be retried")
	require.Contains(t, buf.String(), "status=429")
	require.Contains(t, buf.String(), "path=/repos/octo/widgets/issues/1")
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestLoggingTransport_Error(t *testing.T) {
	ctx, buf := logCapture(t)
	client := &http.Client{Transport: WithLogging(failingTransport{})}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://example.invalid/pulls", nil)
	require.NoError(t, err)
	_, err = client.Do(req)

	require.ErrorContains(t, err, "connection refused")
	require.Contains(t, buf.String(), "HTTP request failed")
}
