package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatOK writes a well-formed completions response with the given content.
func chatOK(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient("test-key", testCatalog(),
		WithBaseURL(srv.URL),
		WithRetryDelay(0),
	)
}

func TestCallOneSuccess(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		chatOK(w, "hello there")
	})

	resp, err := c.CallOne(context.Background(), Call{
		Model:    "test/plain-model",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "test/plain-model", resp.Model)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestCallOneMissingAPIKey(t *testing.T) {
	c := NewHTTPClient("", testCatalog())
	_, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCallOneRetriesTransientOnce(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		chatOK(w, "recovered")
	})

	resp, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCallOneRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "still down", http.StatusServiceUnavailable)
	})

	_, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry exhausted")
	assert.Equal(t, int32(2), attempts.Load(), "exactly one retry, never more")
}

func TestCallOneRateLimitIsTransient(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		chatOK(w, "ok now")
	})

	resp, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	require.NoError(t, err)
	assert.Equal(t, "ok now", resp.Content)
}

func TestCallOnePermanentFailureNoRetry(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load(), "permanent failures must not retry")
}

func TestCallOneEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := c.CallOne(context.Background(), Call{Model: "test/plain-model"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCallOneReasoningPayload(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chatOK(w, "thought about it")
	})

	_, err := c.CallOne(context.Background(), Call{
		Model:     "test/budget-model",
		Messages:  []Message{{Role: RoleUser, Content: "think"}},
		Reasoning: &ReasoningConfig{Enabled: true, MaxTokens: 1024},
	})
	require.NoError(t, err)

	reasoning, ok := body["reasoning"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1024), reasoning["max_tokens"])
	// The answer budget leaves headroom above the thinking budget.
	assert.Equal(t, float64(1024+512), body["max_tokens"])
}

func TestCallOneRejectsMismatchedReasoning(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		chatOK(w, "unreachable")
	})

	_, err := c.CallOne(context.Background(), Call{
		Model:     "test/plain-model",
		Reasoning: &ReasoningConfig{Enabled: true, Effort: "high"},
	})
	require.Error(t, err)
	assert.Zero(t, attempts.Load(), "invalid config must be rejected before any dispatch")
}

func TestCallManyPreservesOrderAndIsolatesFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		model := body["model"].(string)
		if model == "test/budget-model" {
			http.Error(w, "nope", http.StatusBadRequest)
			return
		}
		chatOK(w, "answer from "+model)
	})

	calls := []Call{
		{Model: "test/plain-model"},
		{Model: "test/budget-model"},
		{Model: "test/effort-model"},
	}
	results := c.CallMany(context.Background(), calls)
	require.Len(t, results, 3)

	assert.Equal(t, "test/plain-model", results[0].Model)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "answer from test/plain-model", results[0].Response.Content)

	assert.Equal(t, "test/budget-model", results[1].Model)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Response)

	assert.Equal(t, "test/effort-model", results[2].Model)
	require.NoError(t, results[2].Err)
}

func TestCallManyAllFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadRequest)
	})

	results := c.CallMany(context.Background(), []Call{
		{Model: "test/plain-model"},
		{Model: "test/effort-model"},
	})
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Error(t, res.Err, "result %d", i)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&transientError{fmt.Errorf("timeout")}))
	assert.False(t, IsTransient(fmt.Errorf("plain failure")))
	assert.False(t, IsTransient(nil))
}
