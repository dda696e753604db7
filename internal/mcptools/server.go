package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewCouncilMCPServer creates an MCP server with the council tools registered.
// version is the binary's build version, owned by the cmd package.
func NewCouncilMCPServer(svc *CouncilService, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "council",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List all council conversations, newest first, with titles and message counts.",
	}, svc.ListConversations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Fetch one conversation by id, including per-stage results (brainstorm, expert contributions, verification, final synthesis) for every completed pipeline cycle.",
	}, svc.GetConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_conversation",
		Description: "Permanently delete a conversation and all of its messages.",
	}, svc.DeleteConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_models",
		Description: "List the model catalog with each model's reasoning capability class, plus the default chairman and expert selection.",
	}, svc.ListModels)

	return server
}

// RunMCPServer starts an HTTP server exposing the council MCP tools.
func RunMCPServer(ctx context.Context, svc *CouncilService, addr, version string) error {
	server := NewCouncilMCPServer(svc, version)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
