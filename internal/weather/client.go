package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultTimeout = 10 * time.Second

// ErrUpstreamUnavailable matches every failure returned by a provider.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError is a failed fetch from one data source.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func upstreamErr(source string, format string, args ...interface{}) error {
	return &UpstreamError{Source: source, Err: fmt.Errorf(format, args...)}
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*clientOptions)

func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildOptions(defaultBaseURL string, opts []ClientOption) clientOptions {
	o := clientOptions{baseURL: defaultBaseURL, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// getJSON issues a single GET and decodes the body into v.
func getJSON(ctx context.Context, client *http.Client, source, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstreamErr(source, "build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return upstreamErr(source, "request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return upstreamErr(source, "bad status: %s body=%s", resp.Status, string(payload))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return upstreamErr(source, "decode: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
