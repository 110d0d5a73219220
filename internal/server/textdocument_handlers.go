package server

import (
	"context"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"weft/internal/index"
	"weft/internal/litparse"
	"weft/internal/scheduler"
)

func (s *Server) textDocumentDidOpen(
	ctx *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.setClient(ctx)
	doc, ok := s.openDoc(params.TextDocument.URI)
	if !ok {
		return nil
	}
	s.docs[doc] = params.TextDocument.Text
	s.reindexOpen(doc)
	return nil
}

func (s *Server) textDocumentDidChange(
	ctx *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	s.setClient(ctx)
	doc, ok := s.openDoc(params.TextDocument.URI)
	if !ok {
		return nil
	}
	text, open := s.docs[doc]
	if !open {
		return fmt.Errorf("change for document %s, which is not open", doc)
	}
	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
			} else {
				text = applyChange(text, *change.Range, change.Text)
			}
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}
	s.docs[doc] = text
	s.reindexOpen(doc)
	return nil
}

func (s *Server) textDocumentDidSave(
	ctx *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	s.setClient(ctx)
	doc, ok := s.openDoc(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if params.Text != nil {
		s.docs[doc] = *params.Text
		s.reindexOpen(doc)
	}
	store, root := s.store, s.root
	s.sched.Submit(scheduler.Task{
		Name: "refresh " + doc,
		Run: func() error {
			return index.Refresh(context.Background(), store, root, doc)
		},
	})
	return nil
}

func (s *Server) textDocumentDidClose(
	ctx *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	s.setClient(ctx)
	doc, ok := s.openDoc(params.TextDocument.URI)
	if !ok {
		return nil
	}
	delete(s.docs, doc)
	s.index.ClearOpen(doc)
	s.publishDiagnostics(doc, nil)
	return nil
}

// openDoc resolves a synced document URI to its workspace-relative path.
// Documents outside the workspace and non-literate files are ignored.
func (s *Server) openDoc(uri string) (string, bool) {
	doc, err := s.uriDoc(uri)
	if err != nil {
		log.Debugf("ignoring document: %v", err)
		return "", false
	}
	if !litparse.Supported(doc) {
		return "", false
	}
	return doc, true
}

// reindexOpen reparses an open document's buffered text, overlays its
// blocks on the index and republishes diagnostics.
func (s *Server) reindexOpen(doc string) {
	parser, ok := litparse.ForPath(doc)
	if !ok {
		return
	}
	blocks, err := parser.Extract(context.Background(), doc, []byte(s.docs[doc]))
	if err != nil {
		log.Errorf("failed to extract blocks from %s: %v", doc, err)
		return
	}
	s.index.SetOpen(doc, blocks)
	s.publishDiagnostics(doc, s.blockDiagnostics(blocks))
}
