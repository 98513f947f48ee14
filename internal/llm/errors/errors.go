// Package errors defines the typed error taxonomy for LLM operations.
// Error types determine whether a call is retried at the transport layer or
// surfaced to the attempt loop as a fatal model failure.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes LLM call failures for retry classification.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates rate limiting, retry with backoff (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates provider service unavailable (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeAuth indicates authentication failure (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeContent indicates the provider refused or filtered the request
	// body (non-retryable at this layer).
	ErrorTypeContent ErrorType = "content"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinel errors for consistent handling across the client.
var (
	// ErrRetriesExhausted wraps the final failure after the retry budget is
	// spent. The attempt loop treats it as a fatal model failure.
	ErrRetriesExhausted = errors.New("all retries exhausted")

	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("provider returned empty response")
)

// RetryAfterProvider is implemented by error types that carry a
// server-recommended wait before the next attempt.
type RetryAfterProvider interface {
	GetRetryAfter() time.Duration
}

// ProviderError captures a structured error response from the model provider,
// including the HTTP status and retry timing, enabling classification without
// string matching.
type ProviderError struct {
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after,omitempty"` // Seconds from Retry-After header
}

// Error returns the formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the error warrants another transport attempt.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter implements RetryAfterProvider.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError reports a locally enforced rate limit with retry guidance.
type RateLimitError struct {
	RetryAfter int `json:"retry_after"` // Seconds to wait before retry
	Limit      int `json:"limit"`
}

// Error returns the rate limit description with backoff timing.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// GetRetryAfter implements RetryAfterProvider.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// Classify maps an HTTP status code to an error type.
func Classify(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return ErrorTypeContent
	case statusCode >= 500:
		return ErrorTypeProvider
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryable reports whether an error warrants another transport attempt.
// Rate limits and provider outages retry; auth and content errors do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}

	return false
}

// IsExhausted reports whether an error marks a spent retry budget.
func IsExhausted(err error) bool { return errors.Is(err, ErrRetriesExhausted) }
