package server

import (
	"context"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"weft/internal/block"
	"weft/internal/diff"
	"weft/internal/index"
	"weft/internal/scheduler"
	"weft/internal/session"
)

// Command names advertised through the executeCommand capability.
const (
	cmdBlocks    = "weft.blocks"
	cmdEditEnter = "weft.editEnter"
	cmdEditApply = "weft.editApply"
	cmdEditExit  = "weft.editExit"
	cmdRescan    = "weft.rescan"
)

func commandNames() []string {
	return []string{cmdBlocks, cmdEditEnter, cmdEditApply, cmdEditExit, cmdRescan}
}

type blocksParams struct {
	URI string `json:"uri"`
}

type blocksResult struct {
	Doc    string      `json:"doc"`
	Blocks []blockInfo `json:"blocks"`
}

// blockInfo describes one source block to the editor frontend. Lines are
// 0-based document lines, matching LSP positions.
type blockInfo struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Language   string            `json:"language,omitempty"`
	Target     string            `json:"target,omitempty"`
	Tangled    bool              `json:"tangled"`
	Ordinal    int               `json:"ordinal"`
	Line       int               `json:"line"`
	BodyStart  int               `json:"bodyStart"`
	BodyEnd    int               `json:"bodyEnd"`
	HeaderArgs map[string]string `json:"headerArgs,omitempty"`
}

type enterParams struct {
	URI    string `json:"uri"`
	Line   uint32 `json:"line"`
	Narrow *bool  `json:"narrow,omitempty"`
}

type applyParams struct {
	SessionID string     `json:"sessionId"`
	Edits     []textEdit `json:"edits"`
}

type textEdit struct {
	Range   protocol.Range `json:"range"`
	NewText string         `json:"newText"`
}

type exitParams struct {
	SessionID string `json:"sessionId"`
}

// sessionResult is the editor-facing view of an editing session. Spans are
// byte offsets into Text, the session buffer's native coordinates; the
// cursor hint is an LSP position, filled on enter only.
type sessionResult struct {
	SessionID  string             `json:"sessionId"`
	BlockID    string             `json:"blockId"`
	Language   string             `json:"language,omitempty"`
	Text       string             `json:"text"`
	Editable   spanInfo           `json:"editable"`
	Protected  []protectedInfo    `json:"protected,omitempty"`
	Spliced    bool               `json:"spliced"`
	Narrowed   bool               `json:"narrowed"`
	Cursor     *protocol.Position `json:"cursor,omitempty"`
	StagingURI string             `json:"stagingUri,omitempty"`
	Strategy   string             `json:"strategy,omitempty"`
}

type spanInfo struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type protectedInfo struct {
	Span    spanInfo `json:"span"`
	BlockID string   `json:"blockId"`
	Side    string   `json:"side"`
}

type exitResult struct {
	BlockID string            `json:"blockId"`
	URI     string            `json:"uri"`
	Text    string            `json:"text"`
	Summary diff.Summary      `json:"summary"`
	Diff    []diff.Line       `json:"diff,omitempty"`
	Edit    protocol.TextEdit `json:"edit"`
}

type rescanResult struct {
	Scheduled bool `json:"scheduled"`
}

func (s *Server) cmdListBlocks(p blocksParams) (any, error) {
	doc, err := s.uriDoc(p.URI)
	if err != nil {
		return nil, err
	}
	blocks, err := s.index.Blocks(doc)
	if err != nil {
		return nil, err
	}
	infos := make([]blockInfo, 0, len(blocks))
	for _, b := range blocks {
		infos = append(infos, describeBlock(b))
	}
	return blocksResult{Doc: doc, Blocks: infos}, nil
}

func (s *Server) cmdEditEnter(p enterParams) (any, error) {
	doc, err := s.uriDoc(p.URI)
	if err != nil {
		return nil, err
	}
	blk, ok, err := s.index.BlockAt(doc, int(p.Line))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no source block at %s:%d", doc, p.Line)
	}

	var siblings []block.Block
	if blk.Tangled() {
		siblings, err = s.index.BlocksForTarget(blk.Target)
		if err != nil {
			return nil, err
		}
	}

	narrow := s.config.Narrow
	if p.Narrow != nil {
		narrow = *p.Narrow
	}

	view, err := s.sessions.Enter(blk, siblings, narrow)
	if err != nil {
		return nil, err
	}
	res := viewResult(view)
	cursor := offsetToPosition(view.Text, view.Editable.Start)
	res.Cursor = &cursor
	if view.StagingPath != "" {
		res.StagingURI = pathToURI(view.StagingPath)
		res.Strategy = string(s.config.Strategy())
	}
	return res, nil
}

func (s *Server) cmdEditApply(p applyParams) (any, error) {
	view, err := s.sessions.Get(p.SessionID)
	if err != nil {
		return nil, err
	}
	edits := make([]session.Edit, 0, len(p.Edits))
	for _, e := range p.Edits {
		edits = append(edits, session.Edit{
			Start:   positionToOffset(view.Text, e.Range.Start),
			End:     positionToOffset(view.Text, e.Range.End),
			NewText: e.NewText,
		})
	}
	view, err = s.sessions.Apply(p.SessionID, edits)
	if err != nil {
		return nil, err
	}
	return viewResult(view), nil
}

func (s *Server) cmdEditExit(p exitParams) (any, error) {
	view, err := s.sessions.Exit(p.SessionID)
	if err != nil {
		return nil, err
	}
	lines := diff.TextDiff(view.Block.Text, view.Text)
	return exitResult{
		BlockID: view.Block.ID,
		URI:     s.docURI(view.Block.Doc),
		Text:    view.Text,
		Summary: diff.Count(lines),
		Diff:    lines,
		Edit: protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(view.Block.BodyStart)},
				End:   protocol.Position{Line: uint32(view.Block.BodyEnd)},
			},
			NewText: view.Text,
		},
	}, nil
}

func (s *Server) cmdRescan() (any, error) {
	store, root := s.store, s.root
	s.sched.Submit(scheduler.Task{
		Name: "rescan",
		Run: func() error {
			return index.Scan(context.Background(), store, root)
		},
	})
	return rescanResult{Scheduled: true}, nil
}

func describeBlock(b block.Block) blockInfo {
	return blockInfo{
		ID:         b.ID,
		Name:       b.Name,
		Language:   b.Language,
		Target:     b.Target,
		Tangled:    b.Tangled(),
		Ordinal:    b.Ordinal,
		Line:       b.Line,
		BodyStart:  b.BodyStart,
		BodyEnd:    b.BodyEnd,
		HeaderArgs: b.HeaderArgs,
	}
}

func viewResult(v session.View) sessionResult {
	res := sessionResult{
		SessionID: v.ID,
		BlockID:   v.Block.ID,
		Language:  v.Block.Language,
		Text:      v.Text,
		Editable:  spanInfo{Start: v.Editable.Start, End: v.Editable.End},
		Spliced:   v.Spliced,
		Narrowed:  v.Narrowed,
	}
	for _, seg := range v.Context {
		span := seg.Span()
		res.Protected = append(res.Protected, protectedInfo{
			Span:    spanInfo{Start: span.Start, End: span.End},
			BlockID: seg.Block.ID,
			Side:    seg.Side.String(),
		})
	}
	return res
}
