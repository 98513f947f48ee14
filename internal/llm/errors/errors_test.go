package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusRequestTimeout, ErrorTypeTimeout},
		{http.StatusGatewayTimeout, ErrorTypeTimeout},
		{http.StatusBadRequest, ErrorTypeContent},
		{http.StatusUnprocessableEntity, ErrorTypeContent},
		{http.StatusInternalServerError, ErrorTypeProvider},
		{http.StatusServiceUnavailable, ErrorTypeProvider},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status))
		})
	}
}

func TestProviderError_IsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider}
	for _, typ := range retryable {
		assert.True(t, (&ProviderError{Type: typ}).IsRetryable(), string(typ))
	}

	permanent := []ErrorType{ErrorTypeAuth, ErrorTypeContent, ErrorTypeUnknown}
	for _, typ := range permanent {
		assert.False(t, (&ProviderError{Type: typ}).IsRetryable(), string(typ))
	}
}

func TestGetRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, (&ProviderError{RetryAfter: 30}).GetRetryAfter())
	assert.Zero(t, (&ProviderError{}).GetRetryAfter())
	assert.Equal(t, 5*time.Second, (&RateLimitError{RetryAfter: 5}).GetRetryAfter())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(&RateLimitError{}))
	assert.True(t, IsRetryable(&ProviderError{Type: ErrorTypeProvider}))
	assert.False(t, IsRetryable(&ProviderError{Type: ErrorTypeAuth}))
	assert.False(t, IsRetryable(fmt.Errorf("some plain error")))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &ProviderError{Type: ErrorTypeTimeout})))
}

func TestIsExhausted(t *testing.T) {
	assert.True(t, IsExhausted(fmt.Errorf("%w after 3 attempts", ErrRetriesExhausted)))
	assert.False(t, IsExhausted(ErrEmptyResponse))
	assert.False(t, IsExhausted(nil))
}
