package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahrav/terrabench/internal/llm/transport"
)

// newLoggingMiddleware logs one line per model call with latency, token
// usage, and outcome. Prompt content is never logged; conversations land in
// the dataset entry instead.
func newLoggingMiddleware() transport.Middleware {
	logger := slog.Default().With("component", "llm")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("model call failed",
					"model", req.Model,
					"messages", len(req.Messages),
					"elapsed", elapsed,
					"error", err)
				return nil, err
			}

			logger.Info("model call completed",
				"model", req.Model,
				"messages", len(req.Messages),
				"elapsed", elapsed,
				"total_tokens", resp.Usage.TotalTokens,
				"from_cache", resp.FromCache)
			return resp, nil
		})
	}
}
