package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"advisory-trading-bot/internal/logger"
)

// maxErrorBody bounds how much of a failed response is kept in a StatusError.
const maxErrorBody = 512

// Client is a small JSON-over-HTTP client shared by the model providers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	useLogging bool
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL prefixes every request URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request is one JSON call. Body is encoded on every attempt.
type Request struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
	ctx     context.Context
}

func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// WithHeader sets a request-specific header. Secrets belong here rather than
// on the client so they are never shared between providers.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

type Response struct {
	StatusCode int
	Body       []byte
}

// ParseJSON decodes the response body into v
func (r *Response) ParseJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server's requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether repeating the request could succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	se := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		se.RetryAfter = time.Duration(secs) * time.Second
	}
	return se
}

// Do executes a single attempt.
func (c *Client) Do(req *Request) (*Response, error) {
	url := c.baseURL + req.URL

	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.useLogging {
		logger.Debug(req.ctx, "HTTP call",
			"method", req.Method,
			"url", url,
			"status", httpResp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"body_bytes", len(body),
		)
	}

	if httpResp.StatusCode >= 400 {
		return nil, newStatusError(httpResp, body)
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     5 * time.Second,
	}
}

// DoWithRetry executes a request with exponential backoff. Client errors other
// than 429 are returned immediately. A Retry-After header stretches the wait
// up to MaxWait, and the wait is cut short if the request context ends.
func (c *Client) DoWithRetry(req *Request, config *RetryConfig) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	backoff := config.InitialWait

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		resp, err := c.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		wait := backoff
		var se *StatusError
		if errors.As(err, &se) {
			if !se.Retryable() {
				return nil, err
			}
			if se.RetryAfter > wait {
				wait = min(se.RetryAfter, config.MaxWait)
			}
		}
		if attempt == config.MaxAttempts {
			break
		}

		if c.useLogging {
			logger.Warn(req.ctx, "Request failed, retrying", "attempt", attempt, "error", err, "wait", wait.String())
		}
		select {
		case <-req.ctx.Done():
			return nil, fmt.Errorf("retry aborted: %w", req.ctx.Err())
		case <-time.After(wait):
		}
		backoff = min(backoff*2, config.MaxWait)
	}

	return nil, fmt.Errorf("all %d retry attempts failed: %w", config.MaxAttempts, lastErr)
}
