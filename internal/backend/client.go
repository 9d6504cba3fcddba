// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the Gandalf reply-generation
// service. The service is an opaque collaborator: one request/response call
// to obtain a reply, plus a cheap health probe backing the availability flag.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the reply service API.
const (
	// DefaultBaseURL is the base URL of the reply service.
	DefaultBaseURL = "http://127.0.0.1:8080"

	// DefaultTimeout is the default timeout for reply requests.
	DefaultTimeout = 60 * time.Second

	// DefaultProbeTimeout bounds the health probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultMaxRetries is the number of retry attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds the response body to prevent memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB
)

// sharedHTTPClient pools connections across all reply requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the reply service client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeRateLimited
	ErrTypeBadRequest
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking with errors.Is.
var (
	ErrUnavailable     = &ClientError{Type: ErrTypeUnavailable, Message: "reply service is unreachable"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrRateLimited     = &ClientError{Type: ErrTypeRateLimited, Message: "reply service rate limit exceeded"}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response from reply service"}
)

// IsUnavailable reports whether err indicates an unreachable backend.
func IsUnavailable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrTypeUnavailable || ce.Type == ErrTypeTimeout
	}
	return false
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a single turn sent to the reply service.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// AskRequest is the request body for the reply endpoint.
type AskRequest struct {
	Question string        `json:"question"`
	History  []ChatMessage `json:"history,omitempty"`
}

// Reply is the parsed response from the reply endpoint.
type Reply struct {
	Answer  string        `json:"answer"`
	Latency time.Duration `json:"-"` // Measured round trip, not wire data
}

// apiErrorResponse is the error body the service returns on failure.
type apiErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client communicates with the Gandalf reply-generation service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client for the given base URL. An empty apiKey is
// allowed; the service decides whether anonymous requests are accepted.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: sharedHTTPClient,
		maxRetries: DefaultMaxRetries,
	}
}

// WithHTTPClient overrides the HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithMaxRetries overrides the retry count.
func (c *Client) WithMaxRetries(n int) *Client {
	if n >= 0 {
		c.maxRetries = n
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Ask sends a question with optional history and returns the reply.
// Transient failures (connection errors, 5xx) are retried with exponential
// backoff; rate limiting and client errors are not.
func (c *Client) Ask(ctx context.Context, question string, history []ChatMessage) (*Reply, error) {
	body, err := json.Marshal(AskRequest{Question: question, History: history})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, wrapContextErr(ctx.Err())
			case <-time.After(delay):
			}
		}

		reply, err := c.askOnce(ctx, body)
		if err == nil {
			reply.Latency = time.Since(start)
			return reply, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// askOnce performs a single reply request without retries.
func (c *Client) askOnce(ctx context.Context, body []byte) (*Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode reply", Cause: err}
	}
	if reply.Answer == "" {
		return nil, ErrInvalidResponse
	}
	return &reply, nil
}

// CheckAvailable probes the health endpoint. A nil return means the backend
// is reachable and ready to generate replies.
func (c *Client) CheckAvailable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeUnavailable,
			Message: fmt.Sprintf("health probe returned HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func connectionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeUnknown, Message: "request cancelled", Cause: err}
	}
	return &ClientError{Type: ErrTypeUnavailable, Message: "cannot reach reply service", Cause: err}
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &ClientError{Type: ErrTypeRateLimited, Message: "reply service rate limit exceeded"}
	case status >= 500:
		return &ClientError{Type: ErrTypeUnavailable, Message: fmt.Sprintf("reply service error (HTTP %d): %s", status, msg)}
	case status >= 400:
		return &ClientError{Type: ErrTypeBadRequest, Message: fmt.Sprintf("rejected request (HTTP %d): %s", status, msg)}
	default:
		return &ClientError{Type: ErrTypeUnknown, Message: fmt.Sprintf("unexpected HTTP %d: %s", status, msg)}
	}
}

func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeUnknown, Message: "request cancelled", Cause: err}
}

func isRetryable(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == ErrTypeUnavailable
}

func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
