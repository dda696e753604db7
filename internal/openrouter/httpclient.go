package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/metrics"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

const defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// HTTPClient implements Client against the OpenRouter HTTP API.
type HTTPClient struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	siteURL    string
	appTitle   string
	timeout    time.Duration
	retryDelay time.Duration
	cat        *catalog.Catalog
	met        *metrics.Metrics
	log        *slog.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// WithBaseURL overrides the chat-completions endpoint (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) { c.baseURL = u }
}

// WithRetryDelay sets the backoff before the single transient retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retryDelay = d }
}

// WithAttribution sets the optional HTTP-Referer and X-Title headers.
func WithAttribution(siteURL, appTitle string) ClientOption {
	return func(c *HTTPClient) {
		c.siteURL = siteURL
		c.appTitle = appTitle
	}
}

// WithMetrics wires call/retry counters.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *HTTPClient) { c.met = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *HTTPClient) { c.log = l }
}

// NewHTTPClient creates a gateway client. cat supplies reasoning capability
// classes for payload validation.
func NewHTTPClient(apiKey string, cat *catalog.Catalog, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http:       &http.Client{},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		timeout:    120 * time.Second,
		retryDelay: 2 * time.Second,
		cat:        cat,
		met:        metrics.Nop(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallOne dispatches a single call. A transient failure (timeout, 5xx, 429)
// is retried exactly once after a backoff; a second failure, or any
// permanent failure, is returned as an error value so fan-out aggregation
// can proceed with partial results.
func (c *HTTPClient) CallOne(ctx context.Context, call Call) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := c.buildBody(call)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, call, body)
	if err == nil {
		c.met.ModelCalls.WithLabelValues(call.Model, "ok").Inc()
		return resp, nil
	}
	if !IsTransient(err) {
		c.met.ModelCalls.WithLabelValues(call.Model, "error").Inc()
		return nil, err
	}

	c.met.ModelRetries.WithLabelValues(call.Model).Inc()
	c.log.Warn("transient model failure, retrying once",
		"model", call.Model, "error", err)

	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		c.met.ModelCalls.WithLabelValues(call.Model, "error").Inc()
		return nil, fmt.Errorf("openrouter: %s: %w", call.Model, ctx.Err())
	}

	resp, err = c.post(ctx, call, body)
	if err != nil {
		c.met.ModelCalls.WithLabelValues(call.Model, "error").Inc()
		return nil, fmt.Errorf("openrouter: %s: retry exhausted: %w", call.Model, err)
	}
	c.met.ModelCalls.WithLabelValues(call.Model, "ok").Inc()
	return resp, nil
}

// buildBody assembles the request payload, validating the reasoning config
// against the model's declared capability class.
func (c *HTTPClient) buildBody(call Call) ([]byte, error) {
	payload := map[string]any{
		"model":    call.Model,
		"messages": call.Messages,
	}
	for k, v := range call.Extra {
		payload[k] = v
	}

	reasoning, err := BuildReasoning(c.cat, call.Model, call.Reasoning)
	if err != nil {
		return nil, err
	}
	if reasoning != nil {
		payload["reasoning"] = reasoning
		// A thinking budget must leave headroom for the visible answer.
		if budget, ok := reasoning["max_tokens"].(int); ok {
			if existing, ok := payload["max_tokens"].(int); !ok || existing <= budget {
				payload["max_tokens"] = budget + 512
			}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}
	return body, nil
}

// chatResponse is the subset of the completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// post performs one HTTP round trip and classifies failures as transient or
// permanent.
func (c *HTTPClient) post(ctx context.Context, call Call, body []byte) (*Response, error) {
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.appTitle != "" {
		req.Header.Set("X-Title", c.appTitle)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		// Network errors and deadline expiry are both retry-worthy.
		return nil, &transientError{fmt.Errorf("openrouter: %s: %w", call.Model, err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transientError{fmt.Errorf("openrouter: %s: read response: %w", call.Model, err)}
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests,
		httpResp.StatusCode >= 500:
		return nil, &transientError{fmt.Errorf("openrouter: %s: HTTP %d: %s",
			call.Model, httpResp.StatusCode, truncate(respBody, 200))}
	case httpResp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("openrouter: %s: HTTP %d: %s",
			call.Model, httpResp.StatusCode, truncate(respBody, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter: %s: decode response: %w", call.Model, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openrouter: %s: provider error: %s", call.Model, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: %s: response carried no choices", call.Model)
	}

	return &Response{
		Model:   call.Model,
		Content: parsed.Choices[0].Message.Content,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
