// Package twitch holds the two outbound platform integrations: Helix user
// lookup and extension pubsub broadcast.
package twitch

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL   = "https://api.twitch.tv"
	defaultHelixBaseURL = "https://api.twitch.tv/helix"
	defaultTokenURL     = "https://id.twitch.tv/oauth2/token"
	defaultTimeout      = 10 * time.Second
)

// HTTPStatusError captures unexpected upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("twitch: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// RequestObserver receives the outcome of every outbound call. status is 0
// when the request never produced a response.
type RequestObserver interface {
	ObserveRequest(endpoint string, status int, d time.Duration)
}

type options struct {
	httpClient *http.Client
	observer   RequestObserver
}

type Option func(*options)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func WithRequestObserver(obs RequestObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}

func buildOptions(opts []Option) options {
	o := options{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return o
}

func baseURLOr(base, def string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return def
	}
	return base
}

// do sends req and returns the status and at most 1 MiB of body.
func (o options) do(req *http.Request, endpoint string) (int, []byte, error) {
	start := time.Now()
	res, err := o.httpClient.Do(req)
	if err != nil {
		o.observe(endpoint, 0, start)
		return 0, nil, err
	}
	defer func() { _ = res.Body.Close() }()
	o.observe(endpoint, res.StatusCode, start)

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return res.StatusCode, buf, nil
}

func (o options) observe(endpoint string, status int, start time.Time) {
	if o.observer != nil {
		o.observer.ObserveRequest(endpoint, status, time.Since(start))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
