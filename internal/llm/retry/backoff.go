package retry

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/ahrav/terrabench/internal/llm/configuration"
	llmerrors "github.com/ahrav/terrabench/internal/llm/errors"
)

// calculateBackoff computes the retry delay for an attempt. Provider
// Retry-After guidance takes precedence; otherwise exponential backoff with
// optional full jitter applies. Thread-safe via math/rand/v2.
func (r *retryMiddleware) calculateBackoff(attempt int, err error) time.Duration {
	if retryAfter := extractRetryAfter(err); retryAfter > 0 {
		return retryAfter
	}
	return Backoff(attempt, r.config)
}

// extractRetryAfter pulls a server-recommended wait out of the error chain.
func extractRetryAfter(err error) time.Duration {
	var provider llmerrors.RetryAfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}
	return 0
}

// Backoff calculates the exponential backoff delay for an attempt number.
// Returns zero for non-positive attempts.
func Backoff(attempt int, cfg configuration.RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond // Prevent a hot loop on zero config.
	}
	for i := 1; i < attempt; i++ {
		multiplier := cfg.Multiplier
		if multiplier < 1.0 {
			multiplier = 1.0
		}
		backoff = time.Duration(float64(backoff) * multiplier)
		if backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		// Full jitter: random between 0 and the calculated backoff.
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter
		return time.Duration(jitterMs) * time.Millisecond
	}

	return backoff
}
