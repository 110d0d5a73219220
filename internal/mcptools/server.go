package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"weft/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer builds the MCP server for one workspace root with every weft
// tool registered. The returned cleanup function closes sessions and the
// block index; it is always non-nil and safe to call on error.
func NewServer(root string, cfg config.Config) (*server.MCPServer, func(), error) {
	ws, cleanup, err := NewWorkspace(root, cfg)
	if err != nil {
		return nil, cleanup, err
	}

	s := server.NewMCPServer(
		"weft",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	blocks := NewBlocksTool(ws)
	s.AddTool(blocks.Definition(), blocks.Handle)

	targets := NewTargetsTool(ws)
	s.AddTool(targets.Definition(), targets.Handle)

	enter := NewEnterTool(ws)
	s.AddTool(enter.Definition(), enter.Handle)

	apply := NewApplyTool(ws)
	s.AddTool(apply.Definition(), apply.Handle)

	exit := NewExitTool(ws)
	s.AddTool(exit.Definition(), exit.Handle)

	rescan := NewRescanTool(ws)
	s.AddTool(rescan.Definition(), rescan.Handle)

	return s, cleanup, nil
}

// serverInstructions tells the client how the editing workflow fits
// together.
func serverInstructions() string {
	return `You have access to weft, a context-splicing editor for literate
documents. Org and markdown files embed source blocks; blocks that tangle to
the same output file form one logical program even though they are scattered
through the prose.

## Workflow

1. weft_blocks lists the source blocks of a document with their line
   extents. weft_targets shows which blocks feed each tangle target.
2. weft_edit_enter opens an editing session for the block at a line. The
   session buffer contains the block's editable text with its tangle
   siblings spliced around it as protected context, so definitions from
   other blocks are visible while you edit.
3. weft_edit_apply replaces a byte range of the session buffer. Offsets
   address the text returned by the previous call. Edits touching the
   protected context are rejected and leave the buffer unchanged; re-read
   the reported editable range and try again inside it.
4. weft_edit_exit closes the session and returns the final block text with
   a diff. Write that text back over the block's body lines in the
   document, replacing exactly the lines the result names.

## Rules

- Always exit sessions you entered; sessions hold the block's identity and
  go stale if the document changes underneath them.
- Edit only between the editable byte offsets. The protected context is
  someone else's block; change it by entering a session on that block.
- After editing documents outside this workflow, call weft_rescan so block
  listings and splice context are rebuilt from disk.`
}
