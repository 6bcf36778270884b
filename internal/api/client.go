// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the Treq backend API.
const (
	// DefaultBaseURL is the base URL for the Treq backend.
	// Overridable via config or the TREQ_API_URL environment variable.
	DefaultBaseURL = "http://localhost:8000"

	// EnvBaseURL is the environment variable holding the base URL override.
	EnvBaseURL = "TREQ_API_URL"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all plain request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout, context-controlled).
	// PERFORMANCE: Connection pooling for streaming requests.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common backend errors.
var (
	// ErrNoUserID indicates no user id is configured for the client.
	ErrNoUserID = errors.New("user id not configured")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the backend is down or unreachable.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrEmptyMessage indicates a chat request with no message text.
	ErrEmptyMessage = errors.New("empty message")
)

// APIError represents an HTTP-status error from the backend.
type APIError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("treq API error (HTTP %d): %s", e.Status, e.Message)
}

// ResponseError represents an application-level error carried inside a
// successful HTTP response (an error frame or an error field in the body).
type ResponseError struct {
	Message string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return "treq response error: " + e.Message
}

// ChatRequest is the request body for POST /chat/.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Context        string `json:"context,omitempty"`
	Stream         bool   `json:"stream"`
	Visualization  bool   `json:"visualization,omitempty"`
	ActionID       string `json:"action_id,omitempty"`
}

// ChatResponse is the non-streaming reply from POST /chat/.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id,omitempty"`
	ContextSummary string   `json:"context_summary,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// apiErrorResponse is the error body shape some endpoints return.
type apiErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client is a client for the Treq backend API.
type Client struct {
	baseURL    string
	userID     string
	maxRetries int
	timeout    time.Duration

	// limiter caps outbound request rate so a stuck retry loop cannot
	// hammer the backend.
	limiter *rate.Limiter
}

// NewClient creates a client using the TREQ_API_URL environment variable,
// falling back to DefaultBaseURL.
func NewClient() *Client {
	base := strings.TrimSpace(os.Getenv(EnvBaseURL))
	if base == "" {
		base = DefaultBaseURL
	}
	return NewClientWithBaseURL(base)
}

// NewClientWithBaseURL creates a client for a specific backend URL.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// WithUserID sets the user id sent with chat requests.
func (c *Client) WithUserID(id string) *Client {
	c.userID = strings.TrimSpace(id)
	return c
}

// WithTimeout sets the request timeout for non-streaming calls.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// WithRateLimit sets the outbound request rate limit.
func (c *Client) WithRateLimit(interval time.Duration, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Every(interval), burst)
	return c
}

// BaseURL returns the resolved backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UserID returns the configured user id.
func (c *Client) UserID() string {
	return c.userID
}

// setHeaders sets the common headers for backend requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "treq/0.3.0")
}

// Ask performs a non-streaming chat request.
//
// The request is sent with stream disabled and the complete reply is
// returned as a single ChatResponse. Transient failures are retried with
// exponential backoff.
func (c *Client) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if req.UserID == "" {
		req.UserID = c.userID
	}
	if req.UserID == "" {
		return nil, ErrNoUserID
	}
	req.Stream = false

	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doChatRequest(ctx, req)
		if err != nil {
			if c.isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}

// doChatRequest performs a single non-streaming chat request.
func (c *Client) doChatRequest(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	body, err := c.postJSON(ctx, "/chat/", reqBody)
	if err != nil {
		return nil, err
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != "" {
		return nil, &ResponseError{Message: chatResp.Error}
	}

	return &chatResp, nil
}

// postJSON marshals reqBody, POSTs it to path and returns the raw reply body.
// Non-2xx statuses are converted to typed errors.
func (c *Client) postJSON(ctx context.Context, path string, reqBody any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	// PERFORMANCE: Use shared HTTP client with connection pooling
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// SECURITY: Read response with size limit to prevent memory exhaustion
	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return body, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Check if we hit the limit (response was truncated)
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// handleErrorResponse converts HTTP error responses to typed Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			message = apiErr.Error
		} else if apiErr.Detail != "" {
			message = apiErr.Detail
		}
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	case statusCode == http.StatusServiceUnavailable || statusCode == http.StatusBadGateway:
		return fmt.Errorf("%w: %s", ErrUnavailable, message)
	default:
		return &APIError{Message: message, Status: statusCode}
	}
}

// isRetryable determines if an error should trigger a retry.
func (c *Client) isRetryable(err error) bool {
	// Never retry a cancelled request
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}

	// 5xx statuses are retryable, 4xx are not
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}

	// Application errors are deterministic
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return false
	}

	// Remaining transport failures (connection reset, refused) are retryable
	return true
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, etc.
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
