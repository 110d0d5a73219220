package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// BlocksTool handles the weft_blocks MCP tool.
type BlocksTool struct {
	ws *Workspace
}

// NewBlocksTool creates a BlocksTool over the workspace.
func NewBlocksTool(ws *Workspace) *BlocksTool {
	return &BlocksTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_blocks.
func (t *BlocksTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_blocks",
		mcp.WithDescription(
			"List the source blocks of a literate document: identity, language, "+
				"line extent and tangle target. Pass a line from the listing to "+
				"weft_edit_enter to start editing a block.",
		),
		mcp.WithString("doc",
			mcp.Required(),
			mcp.Description("Document path relative to the workspace root, e.g. notes/build.org"),
		),
	)
}

// Handle processes the weft_blocks tool call.
func (t *BlocksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := req.GetString("doc", "")
	if doc == "" {
		return mcp.NewToolResultError("'doc' is required"), nil
	}

	blocks, err := t.ws.index.Blocks(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list blocks: %v", err)), nil
	}
	if len(blocks) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No source blocks indexed for %s.", doc)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Blocks in %s\n\n", doc)
	for _, b := range blocks {
		fmt.Fprintf(&sb, "- **%s** [%s] lines %d-%d", b.ID, b.Language, b.Line, b.BodyEnd)
		if b.Name != "" {
			fmt.Fprintf(&sb, ", named %q", b.Name)
		}
		if b.Tangled() {
			fmt.Fprintf(&sb, ", tangles to %s (block %d for that target)", b.Target, b.Ordinal+1)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// TargetsTool handles the weft_targets MCP tool.
type TargetsTool struct {
	ws *Workspace
}

// NewTargetsTool creates a TargetsTool over the workspace.
func NewTargetsTool(ws *Workspace) *TargetsTool {
	return &TargetsTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_targets.
func (t *TargetsTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_targets",
		mcp.WithDescription(
			"List the tangle targets of the workspace and the blocks feeding "+
				"each one, in splice order.",
		),
	)
}

// Handle processes the weft_targets tool call.
func (t *TargetsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets, err := t.ws.index.Targets()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list targets: %v", err)), nil
	}
	if len(targets) == 0 {
		return mcp.NewToolResultText("No tangle targets indexed. Blocks need a :tangle header argument to contribute to a target."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Tangle targets\n\n")
	for _, target := range targets {
		blocks, err := t.ws.index.BlocksForTarget(target)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list blocks for %s: %v", target, err)), nil
		}
		fmt.Fprintf(&sb, "- **%s** (%d blocks)\n", target, len(blocks))
		for _, b := range blocks {
			fmt.Fprintf(&sb, "  - %s [%s]\n", b.ID, b.Language)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
