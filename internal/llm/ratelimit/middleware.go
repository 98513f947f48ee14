// Package ratelimit provides a local token-bucket rate limit middleware for
// model calls, keyed per model so one slow provider cannot starve another.
package ratelimit

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/terrabench/internal/llm/configuration"
	llmerrors "github.com/ahrav/terrabench/internal/llm/errors"
	"github.com/ahrav/terrabench/internal/llm/transport"
)

type rateLimitMiddleware struct {
	config configuration.RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMiddleware creates a per-model token-bucket rate limit middleware.
// When disabled, requests pass through untouched.
func NewMiddleware(cfg configuration.RateLimitConfig) transport.Middleware {
	rl := &rateLimitMiddleware{
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
	}

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !cfg.Enabled {
				return next.Handle(ctx, req)
			}
			if err := rl.check(req.Model); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}

// check enforces the token bucket for one model key. When the bucket is
// empty it computes a retry delay without consuming a token, so failed
// requests do not leak bucket capacity.
func (r *rateLimitMiddleware) check(key string) error {
	limiter := r.getOrCreate(key)

	if limiter.Allow() {
		return nil
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel() // Do not consume a token for a rejected request.

	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1 // Floor at one second to avoid tight retry loops.
	}

	return &llmerrors.RateLimitError{
		RetryAfter: retryAfter,
		Limit:      int(r.config.TokensPerSecond),
	}
}

func (r *rateLimitMiddleware) getOrCreate(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(r.config.TokensPerSecond), r.config.BurstSize)
		r.limiters[key] = limiter
	}
	return limiter
}
