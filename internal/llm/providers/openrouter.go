// Package providers implements provider adapters for the transport pipeline.
// OpenRouter is the only provider the evaluator talks to; it fronts every
// model under evaluation behind one chat/completions API.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ahrav/terrabench/internal/llm/configuration"
	llmerrors "github.com/ahrav/terrabench/internal/llm/errors"
	"github.com/ahrav/terrabench/internal/llm/transport"
)

// ProviderOpenRouter is the adapter name reported to middleware.
const ProviderOpenRouter = "openrouter"

// OpenRouterAdapter implements transport.Adapter for the OpenRouter
// chat/completions API, including its attribution headers and error format.
type OpenRouterAdapter struct {
	config configuration.ProviderConfig
}

// NewOpenRouterAdapter creates an OpenRouter adapter with the production
// endpoint as default.
func NewOpenRouterAdapter(cfg configuration.ProviderConfig) *OpenRouterAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterAdapter{config: cfg}
}

// Name returns the provider name.
func (a *OpenRouterAdapter) Name() string { return ProviderOpenRouter }

// apiKey resolves the key at request time so runtime credential updates take
// effect without rebuilding the client.
func (a *OpenRouterAdapter) apiKey() string {
	if a.config.APIKeySource != nil {
		return a.config.APIKeySource()
	}
	return a.config.APIKey
}

// Build constructs the chat/completions HTTP request from a normalized
// transport request.
func (a *OpenRouterAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := a.config.Endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey())
	httpReq.Header.Set("HTTP-Referer", "https://github.com/ahrav/terrabench")
	httpReq.Header.Set("X-Title", "terrabench")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Parse extracts the normalized response from an OpenRouter reply, mapping
// error bodies to typed ProviderErrors with retry classification.
func (a *OpenRouterAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseError(httpResp, body)
	}

	var resp struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
			TotalTokens      int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, llmerrors.ErrEmptyResponse
	}

	return &transport.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: transport.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// parseError converts an OpenRouter error response into a ProviderError.
func parseError(httpResp *http.Response, body []byte) error {
	retryAfter := 0
	if v := httpResp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			retryAfter = secs
		}
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	message := string(body)
	code := ""
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = fmt.Sprint(errResp.Error.Code)
	}

	return &llmerrors.ProviderError{
		StatusCode: httpResp.StatusCode,
		Message:    message,
		Code:       code,
		Type:       llmerrors.Classify(httpResp.StatusCode),
		RetryAfter: retryAfter,
	}
}
