// Package server implements the weft language server. It speaks LSP over
// stdio: literate documents are synced as plain text documents, and the
// splice editing workflow is driven through workspace/executeCommand.
package server

import (
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"weft/internal/config"
	"weft/internal/index"
	"weft/internal/scheduler"
	"weft/internal/session"
	"weft/internal/syntax"
)

var log = commonlog.GetLogger("weft.server")

const serverName = "weft"

// Server carries the state of one language server instance. The fields
// below handler are wired during initialize and stay fixed afterwards.
type Server struct {
	handler *protocol.Handler

	root     string
	config   config.Config
	store    index.Store
	index    *index.Index
	watcher  *index.Watcher
	sessions *session.Registry
	checker  *syntax.Checker
	sched    *scheduler.Scheduler

	// docs holds the buffered text of open literate documents keyed by
	// workspace-relative path.
	docs map[string]string

	mu     sync.Mutex
	client *glsp.Context
}

// NewServer builds the language server, ready to run on stdio.
func NewServer() (*glspserver.Server, error) {
	ls := &Server{docs: make(map[string]string)}
	ls.handler = &protocol.Handler{
		Initialize:              ls.initialize,
		Initialized:             ls.initialized,
		Shutdown:                ls.shutdown,
		TextDocumentDidOpen:     ls.textDocumentDidOpen,
		TextDocumentDidChange:   ls.textDocumentDidChange,
		TextDocumentDidSave:     ls.textDocumentDidSave,
		TextDocumentDidClose:    ls.textDocumentDidClose,
		WorkspaceExecuteCommand: ls.workspaceExecuteCommand,
	}
	return glspserver.NewServer(ls.handler, serverName, false), nil
}

// setClient remembers the connection of the most recent request, so that
// notifications raised outside a handler still reach the editor.
func (s *Server) setClient(ctx *glsp.Context) {
	s.mu.Lock()
	s.client = ctx
	s.mu.Unlock()
}

// notifyClient sends a server-initiated notification over the most recent
// connection. Dropped when no client has talked to us yet.
func (s *Server) notifyClient(method string, params any) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		log.Warningf("no client connection, dropping %s notification", method)
		return
	}
	client.Notify(method, params)
}
