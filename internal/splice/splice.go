// Package splice assembles read-only sibling context around a source block
// that is being edited in isolation, and strips it back out when editing
// ends.
//
// A splice inserts the text of every block tangled to the same target file
// around the editable block: blocks that precede it in the document go in
// front, blocks that follow it go behind, each as a protected segment the
// user cannot modify. Two boundary markers pin down the editable region
// through arbitrary edits between them. Unsplice deletes everything outside
// the boundaries, so the buffer ends up holding exactly the edited block
// text, byte for byte.
package splice

import (
	"fmt"
	"strings"

	"weft/internal/block"
	"weft/internal/buffer"
)

// Side tells which flank of the editable region a context segment sits on.
type Side int

const (
	// Leading context precedes the editable region.
	Leading Side = iota
	// Trailing context follows it.
	Trailing
)

func (s Side) String() string {
	switch s {
	case Leading:
		return "leading"
	case Trailing:
		return "trailing"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Options controls splice behaviour for one editing session.
type Options struct {
	// Narrow restricts the buffer's accessible region to the editable
	// span for the lifetime of the splice.
	Narrow bool
}

// ContextSegment ties a protected span back to the block it was rendered
// from.
type ContextSegment struct {
	Block block.Block
	Side  Side

	seg *buffer.Segment
}

// Span reports the segment's current byte range in the buffer.
func (cs ContextSegment) Span() buffer.Span { return cs.seg.Span() }

// Splice is the spliced state of one editing session. A degenerate splice,
// one that had no context to inject, stays inactive: it owns no markers and
// its Unsplice is a no-op.
type Splice struct {
	buf      *buffer.Buffer
	start    *buffer.Marker
	end      *buffer.Marker
	segments []ContextSegment
	narrowed bool
	active   bool
}

// Apply splices the partition's context around the buffer content, which
// must be exactly the current block's text. Leading blocks are laid out in
// partition order directly above the editable region, trailing blocks
// directly below it, every one on its own line and protected against edits.
// A partition with no renderable context leaves the buffer untouched.
//
// Setup is atomic: a failure rolls back every insertion and marker already
// made.
func Apply(buf *buffer.Buffer, part block.Partition, opts Options) (*Splice, error) {
	s := &Splice{buf: buf}

	editable := buf.String()
	head, headSpans, headBlocks := renderContext(part.Before, false)
	needSep := editable != "" && !strings.HasSuffix(editable, "\n")
	tail, tailSpans, tailBlocks := renderContext(part.After, needSep)
	if head == "" && tail == "" {
		return s, nil
	}

	var undo []func()
	fail := func(err error) (*Splice, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, err
	}

	// Boundaries exist before any insertion so the assembly primitives
	// can steer them: leading text pushes the start boundary ahead of
	// itself, trailing text leaves the end boundary behind.
	start, err := buf.Mark(0, buffer.GravityLeft)
	if err != nil {
		return fail(fmt.Errorf("splice: start boundary: %w", err))
	}
	undo = append(undo, func() { buf.Release(start) })

	end, err := buf.Mark(buf.Len(), buffer.GravityRight)
	if err != nil {
		return fail(fmt.Errorf("splice: end boundary: %w", err))
	}
	undo = append(undo, func() { buf.Release(end) })

	if head != "" {
		if err := buf.InsertAdvancing(0, head); err != nil {
			return fail(fmt.Errorf("splice: insert leading context: %w", err))
		}
		undo = append(undo, func() { _ = buf.Delete(0, len(head)) })
		for i, sp := range headSpans {
			seg, err := buf.Protect(sp.Start, sp.End, buffer.GravityLeft, buffer.GravityLeft)
			if err != nil {
				return fail(fmt.Errorf("splice: protect leading context: %w", err))
			}
			undo = append(undo, func() { buf.Unprotect(seg) })
			s.segments = append(s.segments, ContextSegment{Block: headBlocks[i], Side: Leading, seg: seg})
		}
	}

	if tail != "" {
		base := end.Off()
		if err := buf.InsertAnchored(base, tail); err != nil {
			return fail(fmt.Errorf("splice: insert trailing context: %w", err))
		}
		undo = append(undo, func() { _ = buf.Delete(base, base+len(tail)) })
		for i, sp := range tailSpans {
			seg, err := buf.Protect(base+sp.Start, base+sp.End, buffer.GravityRight, buffer.GravityRight)
			if err != nil {
				return fail(fmt.Errorf("splice: protect trailing context: %w", err))
			}
			undo = append(undo, func() { buf.Unprotect(seg) })
			s.segments = append(s.segments, ContextSegment{Block: tailBlocks[i], Side: Trailing, seg: seg})
		}
	}

	if opts.Narrow {
		if err := buf.Narrow(start.Off(), end.Off()); err != nil {
			return fail(fmt.Errorf("splice: narrow to editable region: %w", err))
		}
		s.narrowed = true
	}

	s.start = start
	s.end = end
	s.active = true
	return s, nil
}

// Unsplice removes the injected context, leaving the buffer with exactly
// the text currently between the boundaries. It lifts narrowing first, then
// deletes the trailing flank before the leading one so the start boundary
// keeps its position for the second deletion. Calling it on an inactive or
// already unspliced state is a no-op, as is finding the boundaries stale.
func (s *Splice) Unsplice() error {
	if !s.active {
		return nil
	}
	buf := s.buf
	sb, eb := s.start.Off(), s.end.Off()
	if sb < 0 || eb < sb || eb > buf.Len() {
		s.discard()
		return nil
	}

	if s.narrowed {
		buf.Widen()
		s.narrowed = false
	}
	for _, cs := range s.segments {
		buf.Unprotect(cs.seg)
	}
	// Both flanks are validated up front so a blocked teardown deletes
	// nothing at all.
	if err := buf.CanDelete(eb, buf.Len()); err != nil {
		return fmt.Errorf("splice: remove trailing context: %w", err)
	}
	if err := buf.CanDelete(0, sb); err != nil {
		return fmt.Errorf("splice: remove leading context: %w", err)
	}
	if err := buf.Delete(eb, buf.Len()); err != nil {
		return fmt.Errorf("splice: remove trailing context: %w", err)
	}
	if err := buf.Delete(0, s.start.Off()); err != nil {
		return fmt.Errorf("splice: remove leading context: %w", err)
	}
	s.discard()
	return nil
}

func (s *Splice) discard() {
	if s.start != nil {
		s.buf.Release(s.start)
	}
	if s.end != nil {
		s.buf.Release(s.end)
	}
	s.start = nil
	s.end = nil
	s.segments = nil
	s.active = false
}

// Spliced reports whether context is currently injected.
func (s *Splice) Spliced() bool { return s.active }

// EditableSpan reports the byte range holding the block text. On an
// inactive splice that is the whole buffer.
func (s *Splice) EditableSpan() buffer.Span {
	if !s.active {
		return buffer.Span{Start: 0, End: s.buf.Len()}
	}
	return buffer.Span{Start: s.start.Off(), End: s.end.Off()}
}

// Editable returns the current, possibly edited, block text.
func (s *Splice) Editable() string {
	sp := s.EditableSpan()
	text, err := s.buf.Slice(sp.Start, sp.End)
	if err != nil {
		return ""
	}
	return text
}

// Segments returns the injected context segments in buffer order.
func (s *Splice) Segments() []ContextSegment {
	if !s.active {
		return nil
	}
	out := make([]ContextSegment, len(s.segments))
	copy(out, s.segments)
	return out
}

// SegmentAt finds the context segment covering the byte at off.
func (s *Splice) SegmentAt(off int) (ContextSegment, bool) {
	if !s.active {
		return ContextSegment{}, false
	}
	for _, cs := range s.segments {
		if cs.Span().Contains(off) {
			return cs, true
		}
	}
	return ContextSegment{}, false
}

// renderContext lays blocks out one per line and records the span each
// occupies, separator included. Blocks with empty text contribute nothing.
// When sep is set, the first rendered block is preceded by a newline that
// belongs to its span, detaching it from unterminated text above.
func renderContext(blocks []block.Block, sep bool) (string, []buffer.Span, []block.Block) {
	var sb strings.Builder
	var spans []buffer.Span
	var kept []block.Block
	for _, b := range blocks {
		if b.Text == "" {
			continue
		}
		start := sb.Len()
		if sep && len(kept) == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Text)
		if !strings.HasSuffix(b.Text, "\n") {
			sb.WriteString("\n")
		}
		spans = append(spans, buffer.Span{Start: start, End: sb.Len()})
		kept = append(kept, b)
	}
	return sb.String(), spans, kept
}
