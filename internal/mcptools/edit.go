package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"weft/internal/block"
	"weft/internal/diff"
	"weft/internal/session"
)

// EnterTool handles the weft_edit_enter MCP tool.
type EnterTool struct {
	ws *Workspace
}

// NewEnterTool creates an EnterTool over the workspace.
func NewEnterTool(ws *Workspace) *EnterTool {
	return &EnterTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_edit_enter.
func (t *EnterTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_edit_enter",
		mcp.WithDescription(
			"Open an editing session for the source block at a document line. "+
				"Sibling blocks tangled to the same target are spliced around it "+
				"as protected context, so cross-block references resolve while "+
				"editing. Only the editable byte range may change; use "+
				"weft_edit_apply to edit and weft_edit_exit to finish.",
		),
		mcp.WithString("doc",
			mcp.Required(),
			mcp.Description("Document path relative to the workspace root"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("0-based line anywhere inside the block to edit"),
		),
		mcp.WithBoolean("narrow",
			mcp.Description("Restrict the accessible region to the editable block"),
		),
	)
}

// Handle processes the weft_edit_enter tool call.
func (t *EnterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := req.GetString("doc", "")
	if doc == "" {
		return mcp.NewToolResultError("'doc' is required"), nil
	}
	line := intArg(req, "line", -1)
	if line < 0 {
		return mcp.NewToolResultError("'line' is required"), nil
	}

	blk, ok, err := t.ws.index.BlockAt(doc, line)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve block: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no source block at %s:%d", doc, line)), nil
	}

	var siblings []block.Block
	if blk.Tangled() {
		siblings, err = t.ws.index.BlocksForTarget(blk.Target)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve context: %v", err)), nil
		}
	}

	narrow := boolArg(req, "narrow", t.ws.cfg.Narrow)
	view, err := t.ws.sessions.Enter(blk, siblings, narrow)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to enter session: %v", err)), nil
	}
	return mcp.NewToolResultText(renderView("Session entered", view)), nil
}

// ApplyTool handles the weft_edit_apply MCP tool.
type ApplyTool struct {
	ws *Workspace
}

// NewApplyTool creates an ApplyTool over the workspace.
func NewApplyTool(ws *Workspace) *ApplyTool {
	return &ApplyTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_edit_apply.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_edit_apply",
		mcp.WithDescription(
			"Replace a byte range of a session's buffer. Offsets address the "+
				"text returned by the previous call and must stay inside the "+
				"editable range; an edit touching protected context is rejected "+
				"and the buffer is left unchanged.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier from weft_edit_enter"),
		),
		mcp.WithNumber("start",
			mcp.Required(),
			mcp.Description("Byte offset where the replacement starts"),
		),
		mcp.WithNumber("end",
			mcp.Required(),
			mcp.Description("Byte offset just past the replaced range; equal to start for a pure insertion"),
		),
		mcp.WithString("text",
			mcp.Description("Replacement text; empty deletes the range"),
		),
	)
}

// Handle processes the weft_edit_apply tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	start := intArg(req, "start", -1)
	end := intArg(req, "end", -1)
	if start < 0 || end < 0 {
		return mcp.NewToolResultError("'start' and 'end' are required byte offsets"), nil
	}

	edit := session.Edit{Start: start, End: end, NewText: req.GetString("text", "")}
	view, err := t.ws.sessions.Apply(id, []session.Edit{edit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(renderView("Edit applied", view)), nil
}

// ExitTool handles the weft_edit_exit MCP tool.
type ExitTool struct {
	ws *Workspace
}

// NewExitTool creates an ExitTool over the workspace.
func NewExitTool(ws *Workspace) *ExitTool {
	return &ExitTool{ws: ws}
}

// Definition returns the MCP tool definition for weft_edit_exit.
func (t *ExitTool) Definition() mcp.Tool {
	return mcp.NewTool("weft_edit_exit",
		mcp.WithDescription(
			"Close an editing session. The protected context is stripped and "+
				"the final block text is returned with a line diff against the "+
				"original; write it back over the block's body in the literate "+
				"document.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier from weft_edit_enter"),
		),
	)
}

// Handle processes the weft_edit_exit tool call.
func (t *ExitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	view, err := t.ws.sessions.Exit(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to exit session: %v", err)), nil
	}

	lines := diff.TextDiff(view.Block.Text, view.Text)
	sum := diff.Count(lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Session closed: %s\n\n", view.Block.ID)
	fmt.Fprintf(&sb, "Replace body lines %d-%d of %s with:\n\n",
		view.Block.BodyStart, view.Block.BodyEnd, view.Block.Doc)
	sb.WriteString(fence(view.Text))
	fmt.Fprintf(&sb, "\nChanges: +%d -%d\n", sum.Added, sum.Removed)
	if sum.Added+sum.Removed > 0 {
		sb.WriteString("\n```diff\n")
		for _, l := range lines {
			switch l.Type {
			case diff.LineAdded:
				fmt.Fprintf(&sb, "+%s\n", l.Text)
			case diff.LineRemoved:
				fmt.Fprintf(&sb, "-%s\n", l.Text)
			default:
				fmt.Fprintf(&sb, " %s\n", l.Text)
			}
		}
		sb.WriteString("```\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// renderView formats a session's buffer state the way every editing tool
// reports it: identity, byte spans, then the full buffer text fenced.
func renderView(title string, v session.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)
	fmt.Fprintf(&sb, "- **Session**: %s\n", v.ID)
	fmt.Fprintf(&sb, "- **Block**: %s", v.Block.ID)
	if v.Block.Language != "" {
		fmt.Fprintf(&sb, " (%s)", v.Block.Language)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- **Editable bytes**: %d-%d\n", v.Editable.Start, v.Editable.End)
	for _, seg := range v.Context {
		span := seg.Span()
		fmt.Fprintf(&sb, "- **Protected bytes**: %d-%d, %s context from %s\n",
			span.Start, span.End, seg.Side, seg.Block.ID)
	}
	if v.Narrowed {
		sb.WriteString("- **Narrowed**: offsets outside the editable range are inaccessible\n")
	}
	if v.StagingPath != "" {
		fmt.Fprintf(&sb, "- **Staged at**: %s\n", v.StagingPath)
	}
	sb.WriteString("\n")
	sb.WriteString(fence(v.Text))
	return sb.String()
}
