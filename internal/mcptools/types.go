// Package mcptools exposes read-only council state over the Model Context
// Protocol: conversation listing and retrieval plus the model catalog.
// Pipeline execution stays behind the HTTP streaming API; MCP clients
// observe, they do not drive.
package mcptools

import "github.com/dusk-indust/council/internal/council"

// ListConversationsInput has no parameters; the listing is always global.
type ListConversationsInput struct{}

// ListConversationsOutput is the newest-first conversation listing.
type ListConversationsOutput struct {
	Conversations []council.ConversationMeta `json:"conversations"`
}

// GetConversationInput identifies one conversation.
type GetConversationInput struct {
	ID string `json:"id" jsonschema:"conversation identifier (UUID)"`
}

// GetConversationOutput carries the full thread including committed stage
// results.
type GetConversationOutput struct {
	Conversation *council.Conversation `json:"conversation"`
}

// DeleteConversationInput identifies the conversation to remove.
type DeleteConversationInput struct {
	ID string `json:"id" jsonschema:"conversation identifier (UUID)"`
}

// DeleteConversationOutput confirms the removal.
type DeleteConversationOutput struct {
	Deleted bool `json:"deleted"`
}

// ListModelsInput has no parameters.
type ListModelsInput struct{}

// ModelEntry is one catalog model with its reasoning capability class.
type ModelEntry struct {
	ID        string `json:"id"`
	Reasoning string `json:"reasoning" jsonschema:"reasoning capability: none, effort, or max-tokens"`
}

// ListModelsOutput is the model catalog plus the default selection.
type ListModelsOutput struct {
	Models          []ModelEntry `json:"models"`
	DefaultChairman string       `json:"default_chairman"`
	DefaultExperts  []string     `json:"default_experts"`
}
