// Package configuration holds the LLM client configuration types shared by
// the transport middleware. Keeping them in a leaf package avoids import
// cycles between the client and its middleware.
package configuration

import (
	"net/http"
	"time"
)

// Config holds the full configuration for the LLM client: provider
// credentials plus resilience parameters for retry, rate limiting, and
// response caching.
type Config struct {
	// HTTPTimeout bounds each provider HTTP round trip.
	HTTPTimeout time.Duration `json:"http_timeout"`

	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client `json:"-"`

	// Provider holds OpenRouter endpoint and credentials.
	Provider ProviderConfig `json:"provider"`

	// Retry controls transport-level retry behavior.
	Retry RetryConfig `json:"retry"`

	// RateLimit controls the local token-bucket limiter.
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Cache controls the optional Redis response cache.
	Cache CacheConfig `json:"cache"`
}

// ProviderConfig holds provider endpoint and authentication settings.
type ProviderConfig struct {
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"-"` // Sensitive, not serialized
	Headers  map[string]string `json:"headers,omitempty"`

	// APIKeySource, when set, is consulted on every request instead of
	// APIKey, so credential updates made after client construction reach
	// subsequent calls.
	APIKeySource func() string `json:"-"`
}

// RetryConfig controls retry behavior for failed LLM calls. Retries apply
// only to transport-level failures; content failures belong to the attempt
// loop's iteration budget, not to this layer.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts"`     // Maximum attempts including the first
	InitialInterval time.Duration `json:"initial_interval"` // Starting backoff duration
	MaxInterval     time.Duration `json:"max_interval"`     // Backoff cap
	MaxElapsedTime  time.Duration `json:"max_elapsed_time"` // Total time budget, 0 = unbounded
	Multiplier      float64       `json:"multiplier"`       // Exponential backoff multiplier
	UseJitter       bool          `json:"use_jitter"`       // Enable full jitter randomization
}

// RateLimitConfig controls the in-memory token bucket applied per model.
type RateLimitConfig struct {
	Enabled         bool    `json:"enabled"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	BurstSize       int     `json:"burst_size"`
}

// CacheConfig controls the Redis-backed response cache. The cache degrades
// gracefully: when Redis is unreachable, requests bypass it.
type CacheConfig struct {
	Enabled       bool          `json:"enabled"`
	TTL           time.Duration `json:"ttl"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"` // Sensitive
	RedisDB       int           `json:"redis_db"`
}

// Default returns a configuration with production-reasonable values and the
// OpenRouter endpoint.
func Default() Config {
	return Config{
		HTTPTimeout: 120 * time.Second,
		Provider: ProviderConfig{
			Endpoint: "https://openrouter.ai/api/v1",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     15 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
			Multiplier:      2.0,
			UseJitter:       true,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			TokensPerSecond: 1,
			BurstSize:       3,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     24 * time.Hour,
		},
	}
}
