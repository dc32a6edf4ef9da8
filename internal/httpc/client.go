// Package httpc provides the shared HTTP client used for outbound API calls.
// Use this instead of http.DefaultClient to ensure timeouts are set.
package httpc

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations. DefaultTimeout is the only deadline
// a classification request gets.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// DefaultUserAgent is sent on every request unless overridden.
const DefaultUserAgent = "go-snaplabel/1.0"

// Client is a shared HTTP client with production-ready defaults.
var Client = NewClient(DefaultTimeout, nil)

// NewClient creates a new HTTP client with the specified timeout.
// Requests are logged at debug level when logger is non-nil.
func NewClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:      newTransport(),
			UserAgent: DefaultUserAgent,
			Logger:    logger,
		},
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Transport sets the User-Agent header and logs each round trip.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
	Logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if t.Logger != nil {
		attrs := []any{
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			t.Logger.Debug("http request failed", append(attrs, "error", err)...)
		} else {
			t.Logger.Debug("http request", append(attrs, "status", resp.StatusCode)...)
		}
	}
	return resp, err
}
