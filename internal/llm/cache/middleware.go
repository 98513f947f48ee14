// Package cache provides an optional Redis-backed response cache for model
// calls. Identical conversations against the same model are served from
// cache, which keeps re-runs of a task set from re-spending API budget.
// Redis failures degrade gracefully to a cache bypass.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/terrabench/internal/llm/configuration"
	"github.com/ahrav/terrabench/internal/llm/transport"
)

const (
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
	keyPrefix         = "terrabench:completion:"
)

type cacheMiddleware struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
}

// NewMiddleware creates the response cache middleware. If client is nil and
// caching is enabled, a Redis client is created from cfg; a failed ping
// disables the cache rather than failing the run.
func NewMiddleware(ctx context.Context, cfg configuration.CacheConfig, client *redis.Client) transport.Middleware {
	if client == nil && cfg.Enabled {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: defaultPoolSize,
		})

		timeoutCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if err := client.Ping(timeoutCtx).Err(); err != nil {
			slog.Warn("Redis connection failed, response cache disabled", "error", err)
			cfg.Enabled = false
		}
	}

	cm := &cacheMiddleware{
		client:  client,
		ttl:     cfg.TTL,
		enabled: cfg.Enabled,
		logger:  slog.Default().With("component", "cache"),
	}
	return cm.middleware()
}

func (c *cacheMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !c.enabled {
				return next.Handle(ctx, req)
			}

			key := c.buildKey(req)
			if cached, ok := c.lookup(ctx, key); ok {
				return cached, nil
			}

			resp, err := next.Handle(ctx, req)
			if err == nil {
				c.store(ctx, key, resp)
			}
			return resp, err
		})
	}
}

// buildKey hashes the model and the full message sequence so that any change
// to the conversation produces a distinct key.
func (c *cacheMiddleware) buildKey(req *transport.Request) string {
	hasher := sha256.New()
	hasher.Write([]byte(req.Model))
	for _, m := range req.Messages {
		hasher.Write([]byte{0})
		hasher.Write([]byte(m.Role))
		hasher.Write([]byte{0})
		hasher.Write([]byte(m.Content))
	}
	return keyPrefix + hex.EncodeToString(hasher.Sum(nil))
}

func (c *cacheMiddleware) lookup(ctx context.Context, key string) (*transport.Response, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}

	var resp transport.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("cache entry corrupt, ignoring", "error", err)
		return nil, false
	}

	resp.FromCache = true
	return &resp, true
}

func (c *cacheMiddleware) store(ctx context.Context, key string, resp *transport.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache store failed", "error", err)
	}
}
