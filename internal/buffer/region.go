package buffer

import "fmt"

// Segment is a protected byte range. Its boundary markers double as the
// stickiness rule for edits at its edges: an insertion at a boundary is
// absorbed, and therefore rejected, exactly when the boundary's gravity
// would pull the new text inside the segment. A segment whose start and end
// both have GravityLeft keeps its tail open, so text typed immediately after
// it stays editable. One with GravityRight on both ends keeps its front
// open.
type Segment struct {
	start *Marker
	end   *Marker
}

// Span reports the segment's current byte range.
func (s *Segment) Span() Span {
	return Span{Start: s.start.off, End: s.end.off}
}

// Protect marks [from, to) as read only for checked edits. The gravities
// control which of the segment's edges absorb adjacent insertions.
func (b *Buffer) Protect(from, to int, startGravity, endGravity Gravity) (*Segment, error) {
	if err := b.checkRange(from, to); err != nil {
		return nil, err
	}
	start, err := b.Mark(from, startGravity)
	if err != nil {
		return nil, err
	}
	end, err := b.Mark(to, endGravity)
	if err != nil {
		b.Release(start)
		return nil, err
	}
	seg := &Segment{start: start, end: end}
	b.segments = append(b.segments, seg)
	return seg, nil
}

// Unprotect removes a single segment and releases its markers.
func (b *Buffer) Unprotect(seg *Segment) {
	for i, cand := range b.segments {
		if cand == seg {
			b.segments = append(b.segments[:i], b.segments[i+1:]...)
			b.Release(seg.start)
			b.Release(seg.end)
			return
		}
	}
}

// ClearProtection removes every segment and releases their markers.
func (b *Buffer) ClearProtection() {
	segs := b.segments
	b.segments = nil
	for _, seg := range segs {
		b.Release(seg.start)
		b.Release(seg.end)
	}
}

// Segments returns the current protected spans in registration order.
func (b *Buffer) Segments() []Span {
	if len(b.segments) == 0 {
		return nil
	}
	spans := make([]Span, len(b.segments))
	for i, seg := range b.segments {
		spans[i] = seg.Span()
	}
	return spans
}

// ProtectedAt reports whether the byte at off belongs to a protected
// segment.
func (b *Buffer) ProtectedAt(off int) bool {
	for _, seg := range b.segments {
		if seg.Span().Contains(off) {
			return true
		}
	}
	return false
}

type segmentBounds struct {
	span         Span
	startGravity Gravity
	endGravity   Gravity
}

func (b *Buffer) currentBounds() []segmentBounds {
	bounds := make([]segmentBounds, len(b.segments))
	for i, seg := range b.segments {
		bounds[i] = segmentBounds{
			span:         seg.Span(),
			startGravity: seg.start.gravity,
			endGravity:   seg.end.gravity,
		}
	}
	return bounds
}

// segmentsAfterDelete projects segment bounds through the removal of
// [from, to). Protection has already ruled out overlap with the range, so
// each segment sits wholly on one side of it.
func (b *Buffer) segmentsAfterDelete(from, to int) []segmentBounds {
	bounds := b.currentBounds()
	n := to - from
	for i := range bounds {
		if bounds[i].span.Start >= to {
			bounds[i].span.Start -= n
		}
		if bounds[i].span.End >= to {
			bounds[i].span.End -= n
		}
	}
	return bounds
}

func checkInsert(off int, bounds []segmentBounds) error {
	for _, sb := range bounds {
		s, e := sb.span.Start, sb.span.End
		switch {
		case off > s && off < e:
			return fmt.Errorf("%w: insert at %d inside protected [%d, %d)", ErrReadOnly, off, s, e)
		case off == s && sb.startGravity == GravityLeft:
			return fmt.Errorf("%w: insert at %d absorbed by protected [%d, %d)", ErrReadOnly, off, s, e)
		case off == e && sb.endGravity == GravityRight:
			return fmt.Errorf("%w: insert at %d absorbed by protected [%d, %d)", ErrReadOnly, off, s, e)
		}
	}
	return nil
}

func (b *Buffer) checkDelete(from, to int) error {
	for _, seg := range b.segments {
		s, e := seg.start.off, seg.end.off
		if from < e && to > s {
			return fmt.Errorf("%w: delete [%d, %d) overlaps protected [%d, %d)", ErrReadOnly, from, to, s, e)
		}
	}
	return nil
}

// Narrow restricts checked edits to [from, to). The bounds are tracked as
// markers, so the accessible region follows subsequent edits. Narrowing an
// already narrowed buffer replaces the previous bounds.
func (b *Buffer) Narrow(from, to int) error {
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	b.Widen()
	lo, err := b.Mark(from, GravityLeft)
	if err != nil {
		return err
	}
	hi, err := b.Mark(to, GravityRight)
	if err != nil {
		b.Release(lo)
		return err
	}
	b.narrowed = true
	b.nlo = lo
	b.nhi = hi
	return nil
}

// Widen lifts narrowing. It is a no-op on a widened buffer.
func (b *Buffer) Widen() {
	if !b.narrowed {
		return
	}
	b.Release(b.nlo)
	b.Release(b.nhi)
	b.narrowed = false
	b.nlo = nil
	b.nhi = nil
}

// Narrowed reports whether the buffer is narrowed.
func (b *Buffer) Narrowed() bool { return b.narrowed }

// NarrowSpan reports the accessible region of a narrowed buffer.
func (b *Buffer) NarrowSpan() (Span, bool) {
	if !b.narrowed {
		return Span{}, false
	}
	return Span{Start: b.nlo.off, End: b.nhi.off}, true
}

// Accessible returns the content of the accessible region. On a widened
// buffer that is the whole content.
func (b *Buffer) Accessible() string {
	if !b.narrowed {
		return b.text
	}
	return b.text[b.nlo.off:b.nhi.off]
}
