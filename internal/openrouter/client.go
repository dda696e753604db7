// Package openrouter is the model gateway: a uniform interface for
// dispatching prompts to text-generation models through the OpenRouter
// chat-completions API, with single-retry failure handling and an
// order-preserving parallel fan-out. The gateway holds no conversation
// state; everything above it treats a model as "prompt in, text or error
// out".
package openrouter

import (
	"context"
	"errors"
	"time"
)

// Role values for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReasoningConfig is the per-model thinking configuration carried by a model
// selection. Zero value means "not enabled".
type ReasoningConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Effort    string `json:"effort,omitempty"`     // low | medium | high
	MaxTokens int    `json:"max_tokens,omitempty"` // thinking-token budget
	Exclude   bool   `json:"exclude,omitempty"`    // omit reasoning text from output
}

// Call is a single model invocation.
type Call struct {
	Model     string
	Messages  []Message
	Reasoning *ReasoningConfig

	// Timeout overrides the client default for this call. Zero keeps the
	// default. Exceeding it is treated identically to a provider error.
	Timeout time.Duration

	// Extra carries provider-specific body fields (web search options,
	// temperature, max_tokens). May be nil.
	Extra map[string]any
}

// Response is a successful model reply.
type Response struct {
	Model   string
	Content string
}

// Result pairs a fan-out call with its outcome. Exactly one of Response and
// Err is set.
type Result struct {
	Model    string
	Response *Response
	Err      error
}

// Client is the gateway interface the sequencer depends on.
type Client interface {
	// CallOne dispatches a single call, retrying one transient failure
	// before returning a permanent error value.
	CallOne(ctx context.Context, call Call) (*Response, error)

	// CallMany dispatches all calls in parallel and waits for every one to
	// settle. results[i] always corresponds to calls[i], regardless of
	// completion order.
	CallMany(ctx context.Context, calls []Call) []Result
}

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("openrouter: API key is not configured")

// transientError marks failures eligible for the single retry: timeouts,
// 5xx, and rate limiting.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err was classified as a transient provider
// failure at any point in its chain.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
