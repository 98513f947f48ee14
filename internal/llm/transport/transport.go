// Package transport defines the request pipeline for model calls: the
// Handler abstraction, composable middleware, and the core HTTP handler that
// talks to the provider adapter.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ahrav/terrabench/internal/domain"
)

// Request is a normalized model completion request. The conversation travels
// as ordered domain messages; the adapter renders them into provider format.
type Request struct {
	// Model is the provider API model identifier.
	Model string

	// Messages is the conversation to complete, in order.
	Messages []domain.Message

	// MaxTokens caps the completion length.
	MaxTokens int64

	// Temperature controls sampling randomness.
	Temperature float64

	// Timeout bounds this request; zero uses the client default.
	Timeout time.Duration
}

// Usage holds normalized token accounting from the provider response.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is a normalized model completion response.
type Response struct {
	// Content is the assistant message text.
	Content string `json:"content"`

	// Model is the model that actually served the request.
	Model string `json:"model"`

	// Usage holds token accounting when the provider reports it.
	Usage Usage `json:"usage"`

	// LatencyMs is the measured round-trip time.
	LatencyMs int64 `json:"latency_ms"`

	// FromCache marks responses served by the cache middleware.
	FromCache bool `json:"from_cache,omitempty"`
}

// Handler processes model requests through the middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Adapter abstracts provider-specific HTTP communication.
type Adapter interface {
	Build(ctx context.Context, req *Request) (*http.Request, error)
	Parse(httpResp *http.Response) (*Response, error)
	Name() string
}

// NewHTTPHandler creates the core handler that performs the provider round
// trip through the given adapter.
func NewHTTPHandler(client *http.Client, adapter Adapter) Handler {
	return &httpHandler{client: client, adapter: adapter}
}

type httpHandler struct {
	client  *http.Client
	adapter Adapter
}

// Handle implements Handler by issuing one HTTP request to the provider.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := h.adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := h.adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	resp.LatencyMs = latency.Milliseconds()
	return resp, nil
}
