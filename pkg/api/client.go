// Package api is the typed client for the remote billing REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	apperrors "paydesk/pkg/errors"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:4000"

// Observer receives one sample per outbound call. status is 0 when no
// response was received.
type Observer interface {
	ObserveAPI(endpoint string, status int, d time.Duration)
}

// Client provides typed access to the billing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *apperrors.RetryHandler
	observer   Observer
	logger     *slog.Logger
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetry configures retries of idempotent reads. attempts <= 1 disables them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.retry.MaxAttempts = attempts
		c.retry.Backoff = backoff
	}
}

// WithObserver records call outcomes, typically into Prometheus.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      apperrors.NewRetryHandler(3),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	cli.retry.OnRetry = func(attempt int, err error) {
		cli.logger.Warn("api read failed, retrying", "attempt", attempt, "error", err)
	}
	return cli, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type call struct {
	method   string
	path     string
	endpoint string
	body     any
	token    string
	out      any
	header   http.Header
}

func (c *Client) do(ctx context.Context, cl call) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cl.method != http.MethodGet {
		return c.once(ctx, cl)
	}
	return c.retry.ExecuteContext(ctx, func() error {
		return c.once(ctx, cl)
	})
}

func (c *Client) once(ctx context.Context, cl call) error {
	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(cl.token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(cl.endpoint, 0, start)
		if ctx.Err() != nil {
			return fmt.Errorf("perform request: %w", err)
		}
		return apperrors.ErrAPIUnavailable.WithCause(err).WithContext("endpoint", cl.endpoint)
	}
	defer resp.Body.Close()
	c.observe(cl.endpoint, resp.StatusCode, start)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
		c.logger.Debug("api error response",
			"endpoint", cl.endpoint, "status", resp.StatusCode, "request_id", reqID)
		return classify(apiErr, cl.endpoint)
	}

	if cl.out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveAPI(endpoint, status, time.Since(start))
	}
}

// classify maps transport-level statuses onto the application error set.
// Other 4xx responses are returned as bare APIError values.
func classify(apiErr APIError, endpoint string) error {
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		return apperrors.ErrSessionExpired.WithCause(apiErr)
	case apiErr.Status == http.StatusNotFound:
		return apperrors.ErrNotFound.WithCause(apiErr).WithContext("endpoint", endpoint)
	case apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError:
		return apperrors.ErrAPIUnavailable.WithCause(apiErr).WithContext("endpoint", endpoint)
	default:
		return apiErr
	}
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
