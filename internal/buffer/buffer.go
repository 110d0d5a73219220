// Package buffer implements an editable text buffer with position markers,
// protected segments and narrowing.
//
// All offsets are byte offsets into the buffer content. Markers keep their
// logical position across edits. A marker carries a gravity that decides
// which side it sticks to when text is inserted exactly at its offset:
// GravityLeft markers stay put, GravityRight markers move past the insertion.
//
// Edits come in two flavours. The checked operations (Insert, Delete,
// Replace) enforce narrowing and segment protection and are the path user
// edits take. The assembly primitives (InsertAdvancing, InsertAnchored)
// override marker gravity at the insertion point and bypass protection; they
// exist so a caller can build up surrounding content without disturbing the
// boundaries it placed first. Once a segment is protected, no checked edit
// can change its bytes.
package buffer

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when an offset or range does not lie
	// within the buffer content.
	ErrOutOfRange = errors.New("buffer: offset out of range")

	// ErrReadOnly is returned when a checked edit would modify or absorb
	// into a protected segment.
	ErrReadOnly = errors.New("buffer: edit touches protected text")

	// ErrNarrowed is returned when a checked edit falls outside the
	// accessible region of a narrowed buffer.
	ErrNarrowed = errors.New("buffer: edit outside accessible region")
)

// Gravity decides which side of an insertion a marker sticks to.
type Gravity int

const (
	// GravityLeft keeps the marker before text inserted at its offset.
	GravityLeft Gravity = iota
	// GravityRight moves the marker past text inserted at its offset.
	GravityRight
)

func (g Gravity) String() string {
	switch g {
	case GravityLeft:
		return "left"
	case GravityRight:
		return "right"
	default:
		return fmt.Sprintf("gravity(%d)", int(g))
	}
}

type insertMode int

const (
	// insertRespect adjusts markers at the insertion point by their own
	// gravity.
	insertRespect insertMode = iota
	// insertAdvance moves every marker at the insertion point past the
	// new text, regardless of gravity.
	insertAdvance
	// insertAnchor keeps every marker at the insertion point in place,
	// regardless of gravity.
	insertAnchor
)

// Marker is a position in a buffer that survives edits. A marker must not
// be used after it has been released.
type Marker struct {
	buf     *Buffer
	off     int
	gravity Gravity
}

// Off reports the marker's current byte offset.
func (m *Marker) Off() int { return m.off }

// Gravity reports the marker's gravity.
func (m *Marker) Gravity() Gravity { return m.gravity }

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len reports the length of the span in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether off lies inside the span.
func (s Span) Contains(off int) bool { return off >= s.Start && off < s.End }

// Buffer is a text buffer with markers, protected segments and narrowing.
// It is not safe for concurrent use; callers serialize access.
type Buffer struct {
	text     string
	markers  []*Marker
	segments []*Segment

	narrowed bool
	nlo      *Marker
	nhi      *Marker
}

// New returns a buffer holding text.
func New(text string) *Buffer {
	return &Buffer{text: text}
}

// Len reports the content length in bytes.
func (b *Buffer) Len() int { return len(b.text) }

// String returns the full content, ignoring narrowing.
func (b *Buffer) String() string { return b.text }

// Slice returns the content in [from, to).
func (b *Buffer) Slice(from, to int) (string, error) {
	if err := b.checkRange(from, to); err != nil {
		return "", err
	}
	return b.text[from:to], nil
}

// Mark places a marker at off with the given gravity.
func (b *Buffer) Mark(off int, gravity Gravity) (*Marker, error) {
	if off < 0 || off > len(b.text) {
		return nil, fmt.Errorf("%w: mark at %d, length %d", ErrOutOfRange, off, len(b.text))
	}
	m := &Marker{buf: b, off: off, gravity: gravity}
	b.markers = append(b.markers, m)
	return m, nil
}

// Release detaches a marker from the buffer. The marker stops adjusting and
// must not be used afterwards.
func (b *Buffer) Release(m *Marker) {
	for i, cand := range b.markers {
		if cand == m {
			b.markers = append(b.markers[:i], b.markers[i+1:]...)
			m.buf = nil
			return
		}
	}
}

// Insert inserts text at off. Markers at off follow their own gravity. The
// edit is rejected if it falls outside the accessible region or would land
// inside a protected segment or be absorbed by one of its sticky edges.
func (b *Buffer) Insert(off int, text string) error {
	if off < 0 || off > len(b.text) {
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, off, len(b.text))
	}
	if err := b.checkNarrow(off, off); err != nil {
		return err
	}
	if err := checkInsert(off, b.currentBounds()); err != nil {
		return err
	}
	b.insertRaw(off, text, insertRespect)
	return nil
}

// Delete removes the bytes in [from, to). The edit is rejected if it falls
// outside the accessible region or overlaps a protected segment.
func (b *Buffer) Delete(from, to int) error {
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	if err := b.checkNarrow(from, to); err != nil {
		return err
	}
	if err := b.checkDelete(from, to); err != nil {
		return err
	}
	b.deleteRaw(from, to)
	return nil
}

// CanDelete reports whether Delete(from, to) would be permitted, without
// performing it.
func (b *Buffer) CanDelete(from, to int) error {
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	if err := b.checkNarrow(from, to); err != nil {
		return err
	}
	return b.checkDelete(from, to)
}

// CanReplace reports whether Replace(from, to, text) would be permitted,
// without performing it.
func (b *Buffer) CanReplace(from, to int) error {
	if err := b.CanDelete(from, to); err != nil {
		return err
	}
	return checkInsert(from, b.segmentsAfterDelete(from, to))
}

// Replace substitutes the bytes in [from, to) with text. It validates the
// whole edit before mutating anything, so a rejected replace leaves the
// buffer untouched.
func (b *Buffer) Replace(from, to int, text string) error {
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	if err := b.checkNarrow(from, to); err != nil {
		return err
	}
	if err := b.checkDelete(from, to); err != nil {
		return err
	}
	// The insertion happens at from in the post-delete buffer, where
	// surviving segment edges may have shifted onto it.
	if err := checkInsert(from, b.segmentsAfterDelete(from, to)); err != nil {
		return err
	}
	b.deleteRaw(from, to)
	b.insertRaw(from, text, insertRespect)
	return nil
}

// InsertAdvancing inserts text at off and moves every marker at off past the
// insertion, regardless of gravity. It bypasses narrowing and protection.
func (b *Buffer) InsertAdvancing(off int, text string) error {
	if off < 0 || off > len(b.text) {
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, off, len(b.text))
	}
	b.insertRaw(off, text, insertAdvance)
	return nil
}

// InsertAnchored inserts text at off and keeps every marker at off in place,
// regardless of gravity. It bypasses narrowing and protection.
func (b *Buffer) InsertAnchored(off int, text string) error {
	if off < 0 || off > len(b.text) {
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, off, len(b.text))
	}
	b.insertRaw(off, text, insertAnchor)
	return nil
}

func (b *Buffer) insertRaw(off int, text string, mode insertMode) {
	if text == "" {
		return
	}
	b.text = b.text[:off] + text + b.text[off:]
	n := len(text)
	for _, m := range b.markers {
		switch {
		case m.off > off:
			m.off += n
		case m.off == off:
			switch mode {
			case insertRespect:
				if m.gravity == GravityRight {
					m.off += n
				}
			case insertAdvance:
				m.off += n
			case insertAnchor:
				// stays
			}
		}
	}
}

func (b *Buffer) deleteRaw(from, to int) {
	if from == to {
		return
	}
	b.text = b.text[:from] + b.text[to:]
	n := to - from
	for _, m := range b.markers {
		switch {
		case m.off >= to:
			m.off -= n
		case m.off > from:
			// Markers inside the deleted range collapse to its start.
			m.off = from
		}
	}
}

func (b *Buffer) checkRange(from, to int) error {
	if from < 0 || to > len(b.text) || from > to {
		return fmt.Errorf("%w: range [%d, %d), length %d", ErrOutOfRange, from, to, len(b.text))
	}
	return nil
}

func (b *Buffer) checkNarrow(from, to int) error {
	if !b.narrowed {
		return nil
	}
	if from < b.nlo.off || to > b.nhi.off {
		return fmt.Errorf("%w: range [%d, %d), accessible [%d, %d)", ErrNarrowed, from, to, b.nlo.off, b.nhi.off)
	}
	return nil
}
