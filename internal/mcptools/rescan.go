package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"weft/internal/index"
)

// RescanTool handles the weft_rescan MCP tool.
type RescanTool struct {
	ws *Workspace
}

// NewRescanTool creates a RescanTool over the workspace.
func NewRescanTool(ws *Workspace) *RescanTool {
	return &RescanTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_rescan.
func (t *RescanTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_rescan",
		mcp.WithDescription(
			"Reindex the workspace's literate documents from disk. Run it after "+
				"documents change outside the session workflow, so block listings "+
				"and splice context stay current.",
		),
	)
}

// Handle processes the weft_rescan tool call.
func (t *RescanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := index.Scan(ctx, t.ws.store, t.ws.root); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to rescan workspace: %v", err)), nil
	}
	docs, err := t.ws.store.Documents()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Workspace rescanned: %d literate documents indexed.", len(docs))), nil
}
