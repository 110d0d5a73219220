// Package mcptools exposes the splice editing workflow as MCP tools, so
// agent clients can browse blocks and drive sessions without an LSP
// connection. Every tool follows the same shape: a small struct holding the
// shared workspace, a Definition method describing the schema, and a Handle
// method processing one call.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tliron/commonlog"

	"weft/internal/config"
	"weft/internal/index"
	"weft/internal/session"
)

var log = commonlog.GetLogger("weft.mcp")

// Workspace bundles the state the tools share: the block index of one
// workspace root and the session registry editing against it.
type Workspace struct {
	root     string
	cfg      config.Config
	store    index.Store
	index    *index.Index
	sessions *session.Registry
}

// NewWorkspace opens the block index for root, scans the workspace once so
// the first tool call sees current blocks, and builds the session registry.
// The MCP transport carries no editor connection, so session activation
// notifications are logged and dropped. The returned cleanup function is
// non-nil even on error.
func NewWorkspace(root string, cfg config.Config) (*Workspace, func(), error) {
	indexPath := cfg.IndexPath
	if indexPath == "" {
		var err error
		indexPath, err = index.DefaultPath(root)
		if err != nil {
			return nil, func() {}, err
		}
	}
	store, err := index.NewSQLiteStore(indexPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open block index: %w", err)
	}
	if err := index.Scan(context.Background(), store, root); err != nil {
		store.Close()
		return nil, func() {}, fmt.Errorf("failed to scan workspace: %w", err)
	}

	staging, err := session.NewStaging(cfg.StagingRoot)
	if err != nil {
		store.Close()
		return nil, func() {}, fmt.Errorf("failed to prepare staging: %w", err)
	}
	notify := func(method string, params any) {
		log.Infof("dropping %s notification: no editor attached", method)
	}

	ws := &Workspace{
		root:     root,
		cfg:      cfg,
		store:    store,
		index:    index.New(store),
		sessions: session.NewRegistry(staging, cfg.Strategy(), notify),
	}
	cleanup := func() {
		ws.sessions.CloseAll()
		if err := ws.store.Close(); err != nil {
			log.Errorf("failed to close block index: %v", err)
		}
	}
	return ws, cleanup, nil
}

// intArg extracts an integer argument. JSON numbers decode as float64, so
// the raw argument map is consulted directly.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// fence wraps text in a code fence, keeping the closing fence on its own
// line even when the text lacks a trailing newline.
func fence(text string) string {
	var sb strings.Builder
	sb.WriteString("```\n")
	sb.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}
