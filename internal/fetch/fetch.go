// Package fetch provides the HTTP layer shared by the pipeline stages: plain
// text retrieval, JSON queries, JSON-over-POST queries, and bulk streaming.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "structure-harvester/1.0"

// Result holds the body and status of a completed request.
type Result struct {
	URL        string
	Body       string
	StatusCode int
}

// Error represents an error during an HTTP exchange.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures request behavior.
type Options struct {
	Timeout   time.Duration // Zero means DefaultTimeout
	UserAgent string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

func (o *Options) normalize() *Options {
	if o == nil {
		return DefaultOptions()
	}
	out := *o
	if out.Timeout == 0 {
		out.Timeout = DefaultTimeout
	}
	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	return &out
}

func newRequest(ctx context.Context, method, rawURL string, body io.Reader, opts *Options) (*http.Request, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	return req, nil
}

// Text retrieves a URL and returns the response body as a string. On a non-2xx
// status the Result is still returned alongside the error so callers can log
// the status code.
func Text(ctx context.Context, rawURL string, opts *Options) (*Result, error) {
	opts = opts.normalize()
	req, err := newRequest(ctx, http.MethodGet, rawURL, nil, opts)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	result := &Result{URL: rawURL, Body: string(body), StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &Error{URL: rawURL, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return result, nil
}

// JSON issues a GET with the given query parameters and decodes the JSON
// response into v.
func JSON(ctx context.Context, rawURL string, params url.Values, v any, opts *Options) error {
	full := rawURL
	if len(params) > 0 {
		full = rawURL + "?" + params.Encode()
	}

	opts = opts.normalize()
	req, err := newRequest(ctx, http.MethodGet, full, nil, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return &Error{URL: full, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{URL: full, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{URL: full, Message: "malformed JSON response", Cause: err}
	}
	return nil
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into v.
func PostJSON(ctx context.Context, rawURL string, payload any, v any, opts *Options) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{URL: rawURL, Message: "failed to encode request body", Cause: err}
	}

	opts = opts.normalize()
	req, err := newRequest(ctx, http.MethodPost, rawURL, bytes.NewReader(body), opts)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{URL: rawURL, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{URL: rawURL, Message: "malformed JSON response", Cause: err}
	}
	return nil
}

// Stream opens a GET request and returns the response body for incremental
// consumption. The caller must close the returned reader.
func Stream(ctx context.Context, rawURL string, opts *Options) (io.ReadCloser, error) {
	opts = opts.normalize()
	req, err := newRequest(ctx, http.MethodGet, rawURL, nil, opts)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &Error{URL: rawURL, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}
