package buffer_test

import (
	"errors"
	"testing"

	"weft/internal/buffer"
)

func mark(t *testing.T, b *buffer.Buffer, off int, g buffer.Gravity) *buffer.Marker {
	t.Helper()
	m, err := b.Mark(off, g)
	if err != nil {
		t.Fatalf("Mark(%d, %v): %v", off, g, err)
	}
	return m
}

func protect(t *testing.T, b *buffer.Buffer, from, to int, sg, eg buffer.Gravity) *buffer.Segment {
	t.Helper()
	seg, err := b.Protect(from, to, sg, eg)
	if err != nil {
		t.Fatalf("Protect(%d, %d): %v", from, to, err)
	}
	return seg
}

func TestInsertMarkerGravity(t *testing.T) {
	tests := []struct {
		name    string
		off     int
		gravity buffer.Gravity
		insert  func(b *buffer.Buffer) error
		want    int
	}{
		{
			name:    "left gravity stays at insertion point",
			off:     3,
			gravity: buffer.GravityLeft,
			insert:  func(b *buffer.Buffer) error { return b.Insert(3, "XX") },
			want:    3,
		},
		{
			name:    "right gravity advances past insertion",
			off:     3,
			gravity: buffer.GravityRight,
			insert:  func(b *buffer.Buffer) error { return b.Insert(3, "XX") },
			want:    5,
		},
		{
			name:    "marker after insertion point shifts",
			off:     5,
			gravity: buffer.GravityLeft,
			insert:  func(b *buffer.Buffer) error { return b.Insert(3, "XX") },
			want:    7,
		},
		{
			name:    "marker before insertion point is untouched",
			off:     2,
			gravity: buffer.GravityRight,
			insert:  func(b *buffer.Buffer) error { return b.Insert(3, "XX") },
			want:    2,
		},
		{
			name:    "advancing insert overrides left gravity",
			off:     3,
			gravity: buffer.GravityLeft,
			insert:  func(b *buffer.Buffer) error { return b.InsertAdvancing(3, "XX") },
			want:    5,
		},
		{
			name:    "anchored insert overrides right gravity",
			off:     3,
			gravity: buffer.GravityRight,
			insert:  func(b *buffer.Buffer) error { return b.InsertAnchored(3, "XX") },
			want:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := buffer.New("hello")
			m := mark(t, b, tt.off, tt.gravity)
			if err := tt.insert(b); err != nil {
				t.Fatalf("insert: %v", err)
			}
			if m.Off() != tt.want {
				t.Errorf("marker at %d, want %d", m.Off(), tt.want)
			}
		})
	}
}

func TestDeleteAdjustsMarkers(t *testing.T) {
	b := buffer.New("0123456789")
	before := mark(t, b, 2, buffer.GravityLeft)
	inside := mark(t, b, 5, buffer.GravityRight)
	atEnd := mark(t, b, 7, buffer.GravityLeft)
	after := mark(t, b, 9, buffer.GravityLeft)

	if err := b.Delete(4, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := b.String(); got != "0123789" {
		t.Fatalf("content %q, want %q", got, "0123789")
	}
	if before.Off() != 2 {
		t.Errorf("marker before range at %d, want 2", before.Off())
	}
	if inside.Off() != 4 {
		t.Errorf("marker inside range at %d, want 4 (collapsed to start)", inside.Off())
	}
	if atEnd.Off() != 4 {
		t.Errorf("marker at range end at %d, want 4", atEnd.Off())
	}
	if after.Off() != 6 {
		t.Errorf("marker after range at %d, want 6", after.Off())
	}
}

func TestProtectRejectsEdits(t *testing.T) {
	// Layout: head [0,4) closed at its start, tail [8,12) closed at its
	// end. The span [4,8) between them is editable.
	newBuf := func(t *testing.T) *buffer.Buffer {
		b := buffer.New("AAA\nxxx\nZZZ\n")
		protect(t, b, 0, 4, buffer.GravityLeft, buffer.GravityLeft)
		protect(t, b, 8, 12, buffer.GravityRight, buffer.GravityRight)
		return b
	}

	tests := []struct {
		name    string
		edit    func(b *buffer.Buffer) error
		wantErr error
	}{
		{"insert inside head", func(b *buffer.Buffer) error { return b.Insert(2, "!") }, buffer.ErrReadOnly},
		{"insert at head start", func(b *buffer.Buffer) error { return b.Insert(0, "!") }, buffer.ErrReadOnly},
		{"insert at head end", func(b *buffer.Buffer) error { return b.Insert(4, "!") }, nil},
		{"insert at tail start", func(b *buffer.Buffer) error { return b.Insert(8, "!") }, nil},
		{"insert inside tail", func(b *buffer.Buffer) error { return b.Insert(10, "!") }, buffer.ErrReadOnly},
		{"insert at buffer end", func(b *buffer.Buffer) error { return b.Insert(12, "!") }, buffer.ErrReadOnly},
		{"insert mid editable", func(b *buffer.Buffer) error { return b.Insert(6, "!") }, nil},
		{"delete straddling head", func(b *buffer.Buffer) error { return b.Delete(3, 5) }, buffer.ErrReadOnly},
		{"delete covering tail", func(b *buffer.Buffer) error { return b.Delete(8, 12) }, buffer.ErrReadOnly},
		{"delete whole editable", func(b *buffer.Buffer) error { return b.Delete(4, 8) }, nil},
		{"replace into head", func(b *buffer.Buffer) error { return b.Replace(2, 6, "y") }, buffer.ErrReadOnly},
		{"replace whole editable", func(b *buffer.Buffer) error { return b.Replace(4, 8, "yyy\n") }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuf(t)
			err := tt.edit(b)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("edit rejected: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("edit error = %v, want %v", err, tt.wantErr)
			}
			if got := b.String(); got != "AAA\nxxx\nZZZ\n" {
				t.Errorf("rejected edit mutated buffer: %q", got)
			}
		})
	}
}

func TestSegmentEdgesDoNotAbsorb(t *testing.T) {
	b := buffer.New("AAA\nxxx\nZZZ\n")
	head := protect(t, b, 0, 4, buffer.GravityLeft, buffer.GravityLeft)
	tail := protect(t, b, 8, 12, buffer.GravityRight, buffer.GravityRight)

	if err := b.Insert(4, "w\n"); err != nil {
		t.Fatalf("insert at head end: %v", err)
	}
	if got := head.Span(); got != (buffer.Span{Start: 0, End: 4}) {
		t.Errorf("head grew to %+v after insert at its end", got)
	}

	// The tail moved right by the first insertion.
	if err := b.Insert(tail.Span().Start, "y\n"); err != nil {
		t.Fatalf("insert at tail start: %v", err)
	}
	if got := tail.Span(); got.Len() != 4 {
		t.Errorf("tail grew to %+v after insert at its start", got)
	}
	if got := b.String(); got != "AAA\nw\nxxx\ny\nZZZ\n" {
		t.Errorf("content %q, want %q", got, "AAA\nw\nxxx\ny\nZZZ\n")
	}

	head2, _ := b.Slice(head.Span().Start, head.Span().End)
	tail2, _ := b.Slice(tail.Span().Start, tail.Span().End)
	if head2 != "AAA\n" || tail2 != "ZZZ\n" {
		t.Errorf("protected bytes changed: head %q tail %q", head2, tail2)
	}
}

func TestNarrow(t *testing.T) {
	b := buffer.New("AAA\nxxx\nZZZ\n")
	if err := b.Narrow(4, 8); err != nil {
		t.Fatalf("Narrow: %v", err)
	}
	if got := b.Accessible(); got != "xxx\n" {
		t.Errorf("Accessible() = %q, want %q", got, "xxx\n")
	}
	if err := b.Insert(2, "!"); !errors.Is(err, buffer.ErrNarrowed) {
		t.Errorf("insert below narrowing: err = %v, want ErrNarrowed", err)
	}
	if err := b.Delete(7, 10); !errors.Is(err, buffer.ErrNarrowed) {
		t.Errorf("delete past narrowing: err = %v, want ErrNarrowed", err)
	}

	// Inserting at the upper bound extends the accessible region.
	if err := b.Insert(8, "y\n"); err != nil {
		t.Fatalf("insert at narrow end: %v", err)
	}
	if got := b.Accessible(); got != "xxx\ny\n" {
		t.Errorf("Accessible() = %q, want %q", got, "xxx\ny\n")
	}
	span, ok := b.NarrowSpan()
	if !ok || span != (buffer.Span{Start: 4, End: 10}) {
		t.Errorf("NarrowSpan() = %+v, %v", span, ok)
	}

	b.Widen()
	if b.Narrowed() {
		t.Error("buffer still narrowed after Widen")
	}
	if err := b.Insert(0, "-"); err != nil {
		t.Errorf("insert after Widen: %v", err)
	}
}

func TestReplaceIsAtomic(t *testing.T) {
	b := buffer.New("AAA\nxxx\n")
	protect(t, b, 0, 4, buffer.GravityLeft, buffer.GravityLeft)

	err := b.Replace(2, 6, "nope")
	if !errors.Is(err, buffer.ErrReadOnly) {
		t.Fatalf("Replace error = %v, want ErrReadOnly", err)
	}
	if got := b.String(); got != "AAA\nxxx\n" {
		t.Errorf("failed Replace mutated buffer: %q", got)
	}
}

func TestOutOfRange(t *testing.T) {
	b := buffer.New("abc")
	if err := b.Insert(4, "x"); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("Insert(4) err = %v, want ErrOutOfRange", err)
	}
	if err := b.Delete(2, 1); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("Delete(2, 1) err = %v, want ErrOutOfRange", err)
	}
	if _, err := b.Slice(-1, 2); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("Slice(-1, 2) err = %v, want ErrOutOfRange", err)
	}
	if _, err := b.Mark(9, buffer.GravityLeft); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("Mark(9) err = %v, want ErrOutOfRange", err)
	}
}

// TestContextAssembly walks the primitive sequence a splice performs: place
// boundary markers, push context around them, protect it, edit, tear down.
func TestContextAssembly(t *testing.T) {
	b := buffer.New("x=1")
	sb := mark(t, b, 0, buffer.GravityLeft)
	eb := mark(t, b, b.Len(), buffer.GravityRight)

	// Leading context goes in front of the boundary markers.
	if err := b.InsertAdvancing(0, "a=0\n"); err != nil {
		t.Fatalf("InsertAdvancing: %v", err)
	}
	if sb.Off() != 4 || eb.Off() != 7 {
		t.Fatalf("boundaries at %d, %d after head, want 4, 7", sb.Off(), eb.Off())
	}
	protect(t, b, 0, 4, buffer.GravityLeft, buffer.GravityLeft)

	// Trailing context goes behind the end boundary.
	if err := b.InsertAnchored(eb.Off(), "\nz=9"); err != nil {
		t.Fatalf("InsertAnchored: %v", err)
	}
	if eb.Off() != 7 {
		t.Fatalf("end boundary at %d after tail, want 7", eb.Off())
	}
	protect(t, b, 7, 11, buffer.GravityRight, buffer.GravityRight)

	if got := b.String(); got != "a=0\nx=1\nz=9" {
		t.Fatalf("assembled %q, want %q", got, "a=0\nx=1\nz=9")
	}

	// Typing at the end of the editable span stays editable.
	if err := b.Insert(eb.Off(), "\ny=2"); err != nil {
		t.Fatalf("user insert: %v", err)
	}
	if got := b.String(); got != "a=0\nx=1\ny=2\nz=9" {
		t.Fatalf("after edit %q, want %q", got, "a=0\nx=1\ny=2\nz=9")
	}
	if sb.Off() != 4 || eb.Off() != 11 {
		t.Fatalf("boundaries at %d, %d after edit, want 4, 11", sb.Off(), eb.Off())
	}

	// Teardown strips context and keeps the edit.
	b.Widen()
	b.ClearProtection()
	if err := b.Delete(eb.Off(), b.Len()); err != nil {
		t.Fatalf("delete tail: %v", err)
	}
	if err := b.Delete(0, sb.Off()); err != nil {
		t.Fatalf("delete head: %v", err)
	}
	if got := b.String(); got != "x=1\ny=2" {
		t.Errorf("after teardown %q, want %q", got, "x=1\ny=2")
	}
}
