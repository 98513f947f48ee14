// Package llm assembles the model client: an OpenRouter transport wrapped in
// logging, rate limiting, retry, and caching middleware. The client exposes
// one operation, Complete, which the attempt loop calls once per iteration.
package llm

import (
	"context"
	"net/http"

	"github.com/ahrav/terrabench/internal/domain"
	"github.com/ahrav/terrabench/internal/llm/cache"
	"github.com/ahrav/terrabench/internal/llm/configuration"
	"github.com/ahrav/terrabench/internal/llm/providers"
	"github.com/ahrav/terrabench/internal/llm/ratelimit"
	"github.com/ahrav/terrabench/internal/llm/retry"
	"github.com/ahrav/terrabench/internal/llm/transport"
)

// Client completes conversations against a model. Implementations handle
// transport-level retry internally; an error from Complete means the retry
// budget is spent and the caller should treat the model as unreachable.
type Client interface {
	Complete(ctx context.Context, model string, messages []domain.Message) (*transport.Response, error)
}

type client struct {
	handler transport.Handler
	config  configuration.Config
}

// NewClient builds the production client from configuration. The middleware
// chain runs logging outermost, then rate limiting, retry, and cache, with
// the HTTP adapter innermost, so retries re-enter the cache and each retry
// respects the rate limit.
func NewClient(ctx context.Context, cfg configuration.Config) (Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	adapter := providers.NewOpenRouterAdapter(cfg.Provider)
	core := transport.NewHTTPHandler(httpClient, adapter)

	retryMW, err := retry.NewMiddleware(cfg.Retry)
	if err != nil {
		return nil, err
	}

	handler := transport.Chain(core,
		newLoggingMiddleware(),
		ratelimit.NewMiddleware(cfg.RateLimit),
		retryMW,
		cache.NewMiddleware(ctx, cfg.Cache, nil),
	)

	return &client{handler: handler, config: cfg}, nil
}

// Complete sends the conversation to the model and returns its response.
func (c *client) Complete(ctx context.Context, model string, messages []domain.Message) (*transport.Response, error) {
	req := &transport.Request{
		Model:    model,
		Messages: messages,
		Timeout:  c.config.HTTPTimeout,
	}
	return c.handler.Handle(ctx, req)
}
