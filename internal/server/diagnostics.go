package server

import (
	"context"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"weft/internal/block"
	"weft/internal/syntax"
)

// publishDiagnostics pushes a document's current diagnostics. An empty set
// is still published, so stale diagnostics clear once the last problem is
// fixed.
func (s *Server) publishDiagnostics(doc string, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	s.notifyClient("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         s.docURI(doc),
		Diagnostics: diagnostics,
	})
}

// blockDiagnostics syntax-checks every block of a supported language and
// maps the findings onto literate-document coordinates.
func (s *Server) blockDiagnostics(blocks []block.Block) []protocol.Diagnostic {
	if s.checker == nil {
		return nil
	}
	var diagnostics []protocol.Diagnostic
	severity := protocol.DiagnosticSeverityError
	source := serverName
	for _, blk := range blocks {
		if !syntax.Supported(blk.Language) {
			continue
		}
		found, err := s.checker.Check(context.Background(), blk.Language, []byte(blk.Text))
		if err != nil {
			log.Warningf("syntax check failed for %s: %v", blk.ID, err)
			continue
		}
		for _, d := range found {
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range: protocol.Range{
					Start: blockPosition(blk, d.StartLine, d.StartCol),
					End:   blockPosition(blk, d.EndLine, d.EndCol),
				},
				Severity: &severity,
				Source:   &source,
				Message:  d.Message,
			})
		}
	}
	return diagnostics
}

// blockPosition maps a row and byte column inside a block's body to a
// document position. Columns convert from bytes to UTF-16 code units.
func blockPosition(blk block.Block, row, col uint32) protocol.Position {
	lines := strings.Split(blk.Text, "\n")
	if int(row) >= len(lines) {
		row = uint32(len(lines) - 1)
	}
	line := lines[row]
	if int(col) > len(line) {
		col = uint32(len(line))
	}
	var units uint32
	for _, r := range line[:col] {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return protocol.Position{Line: uint32(blk.BodyStart) + row, Character: units}
}
