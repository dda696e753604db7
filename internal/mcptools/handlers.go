package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/council"
)

// Store is the conversation persistence surface the tools read from.
type Store interface {
	Get(id string) (*council.Conversation, error)
	List() ([]council.ConversationMeta, error)
	Delete(id string) error
}

// CouncilService handles MCP tool calls against the conversation store and
// model catalog.
type CouncilService struct {
	store Store
	cat   *catalog.Catalog
}

// NewCouncilService creates a CouncilService over the given store and catalog.
func NewCouncilService(store Store, cat *catalog.Catalog) *CouncilService {
	return &CouncilService{
		store: store,
		cat:   cat,
	}
}

// ListConversations returns all conversations, newest first.
func (s *CouncilService) ListConversations(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListConversationsInput,
) (*mcp.CallToolResult, ListConversationsOutput, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, ListConversationsOutput{}, fmt.Errorf("list conversations: %w", err)
	}
	return nil, ListConversationsOutput{Conversations: metas}, nil
}

// GetConversation returns one full conversation thread.
func (s *CouncilService) GetConversation(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetConversationInput,
) (*mcp.CallToolResult, GetConversationOutput, error) {
	conv, err := s.store.Get(input.ID)
	if err != nil {
		if errors.Is(err, council.ErrNotFound) {
			return nil, GetConversationOutput{}, fmt.Errorf("conversation %s not found", input.ID)
		}
		return nil, GetConversationOutput{}, fmt.Errorf("get conversation: %w", err)
	}
	return nil, GetConversationOutput{Conversation: conv}, nil
}

// DeleteConversation removes a conversation permanently.
func (s *CouncilService) DeleteConversation(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DeleteConversationInput,
) (*mcp.CallToolResult, DeleteConversationOutput, error) {
	if err := s.store.Delete(input.ID); err != nil {
		if errors.Is(err, council.ErrNotFound) {
			return nil, DeleteConversationOutput{}, fmt.Errorf("conversation %s not found", input.ID)
		}
		return nil, DeleteConversationOutput{}, fmt.Errorf("delete conversation: %w", err)
	}
	return nil, DeleteConversationOutput{Deleted: true}, nil
}

// ListModels returns the model catalog with reasoning classes and defaults.
func (s *CouncilService) ListModels(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListModelsInput,
) (*mcp.CallToolResult, ListModelsOutput, error) {
	ids := s.cat.ModelIDs()
	models := make([]ModelEntry, 0, len(ids))
	for _, id := range ids {
		models = append(models, ModelEntry{ID: id, Reasoning: s.cat.Class(id).String()})
	}
	return nil, ListModelsOutput{
		Models:          models,
		DefaultChairman: s.cat.DefaultChairman,
		DefaultExperts:  append([]string{}, s.cat.DefaultExperts...),
	}, nil
}
