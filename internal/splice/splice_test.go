package splice_test

import (
	"errors"
	"testing"

	"weft/internal/block"
	"weft/internal/buffer"
	"weft/internal/splice"
)

func mkPartition(before, after []string) block.Partition {
	var part block.Partition
	for i, text := range before {
		part.Before = append(part.Before, block.Block{
			ID:   block.NewID("doc.org", i),
			Text: text,
		})
	}
	for i, text := range after {
		part.After = append(part.After, block.Block{
			ID:   block.NewID("doc.org", 100+i),
			Text: text,
		})
	}
	return part
}

func apply(t *testing.T, buf *buffer.Buffer, part block.Partition, opts splice.Options) *splice.Splice {
	t.Helper()
	s, err := splice.Apply(buf, part, opts)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return s
}

func TestSpliceLayout(t *testing.T) {
	// Blocks a, b, d surround the editable block c, all tangled to one
	// target. The spliced buffer reads in document order.
	buf := buffer.New("c\n")
	s := apply(t, buf, mkPartition([]string{"a\n", "b\n"}, []string{"d\n"}), splice.Options{})

	if got, want := buf.String(), "a\nb\nc\nd\n"; got != want {
		t.Fatalf("spliced buffer %q, want %q", got, want)
	}
	if !s.Spliced() {
		t.Fatal("splice with context should be active")
	}
	if got, want := s.EditableSpan(), (buffer.Span{Start: 4, End: 6}); got != want {
		t.Errorf("editable span %+v, want %+v", got, want)
	}
	if got := s.Editable(); got != "c\n" {
		t.Errorf("editable %q, want %q", got, "c\n")
	}

	segs := s.Segments()
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	wantSides := []splice.Side{splice.Leading, splice.Leading, splice.Trailing}
	wantSpans := []buffer.Span{{Start: 0, End: 2}, {Start: 2, End: 4}, {Start: 6, End: 8}}
	for i, seg := range segs {
		if seg.Side != wantSides[i] {
			t.Errorf("segment %d side %v, want %v", i, seg.Side, wantSides[i])
		}
		if got := seg.Span(); got != wantSpans[i] {
			t.Errorf("segment %d span %+v, want %+v", i, got, wantSpans[i])
		}
	}

	if seg, ok := s.SegmentAt(1); !ok || seg.Block.ID != "doc.org:0" {
		t.Errorf("SegmentAt(1) = %v, %v; want block doc.org:0", seg.Block.ID, ok)
	}
	if _, ok := s.SegmentAt(5); ok {
		t.Error("SegmentAt inside editable region reported a segment")
	}
}

func TestDegenerateSpliceIsNoop(t *testing.T) {
	buf := buffer.New("x=1\n")
	s := apply(t, buf, block.Partition{}, splice.Options{Narrow: true})

	if s.Spliced() {
		t.Error("empty partition produced an active splice")
	}
	if got := buf.String(); got != "x=1\n" {
		t.Errorf("buffer changed to %q", got)
	}
	if buf.Narrowed() {
		t.Error("degenerate splice narrowed the buffer")
	}
	if err := s.Unsplice(); err != nil {
		t.Fatalf("Unsplice: %v", err)
	}
	if got := buf.String(); got != "x=1\n" {
		t.Errorf("buffer changed by unsplice to %q", got)
	}
}

func TestEmptyContextTextsAreSkipped(t *testing.T) {
	buf := buffer.New("x=1\n")
	s := apply(t, buf, mkPartition([]string{"", ""}, []string{""}), splice.Options{})

	if s.Spliced() {
		t.Error("partition of empty texts produced an active splice")
	}
	if got := buf.String(); got != "x=1\n" {
		t.Errorf("buffer changed to %q", got)
	}
}

func TestEditsAtRegionEdges(t *testing.T) {
	t.Run("append at end", func(t *testing.T) {
		buf := buffer.New("x=1")
		s := apply(t, buf, mkPartition([]string{"a=0"}, []string{"z=9"}), splice.Options{})

		if got, want := buf.String(), "a=0\nx=1\nz=9\n"; got != want {
			t.Fatalf("spliced buffer %q, want %q", got, want)
		}
		if err := buf.Insert(s.EditableSpan().End, "\ny=2"); err != nil {
			t.Fatalf("insert at region end: %v", err)
		}
		if err := s.Unsplice(); err != nil {
			t.Fatalf("Unsplice: %v", err)
		}
		if got, want := buf.String(), "x=1\ny=2"; got != want {
			t.Errorf("unspliced %q, want %q", got, want)
		}
	})

	t.Run("prepend at start", func(t *testing.T) {
		buf := buffer.New("x=1\n")
		s := apply(t, buf, mkPartition([]string{"a=0\n"}, []string{"z=9\n"}), splice.Options{})

		if err := buf.Insert(s.EditableSpan().Start, "w=0\n"); err != nil {
			t.Fatalf("insert at region start: %v", err)
		}
		if got := s.Editable(); got != "w=0\nx=1\n" {
			t.Fatalf("editable %q after prepend", got)
		}
		if err := s.Unsplice(); err != nil {
			t.Fatalf("Unsplice: %v", err)
		}
		if got, want := buf.String(), "w=0\nx=1\n"; got != want {
			t.Errorf("unspliced %q, want %q", got, want)
		}
	})

	t.Run("delete everything then retype", func(t *testing.T) {
		buf := buffer.New("x=1\n")
		s := apply(t, buf, mkPartition([]string{"a=0\n"}, []string{"z=9\n"}), splice.Options{})

		sp := s.EditableSpan()
		if err := buf.Delete(sp.Start, sp.End); err != nil {
			t.Fatalf("delete editable: %v", err)
		}
		if err := buf.Insert(s.EditableSpan().Start, "q=7\n"); err != nil {
			t.Fatalf("retype: %v", err)
		}
		if err := s.Unsplice(); err != nil {
			t.Fatalf("Unsplice: %v", err)
		}
		if got, want := buf.String(), "q=7\n"; got != want {
			t.Errorf("unspliced %q, want %q", got, want)
		}
	})
}

func TestContextIsProtected(t *testing.T) {
	buf := buffer.New("x=1\n")
	s := apply(t, buf, mkPartition([]string{"a=0\n"}, []string{"z=9\n"}), splice.Options{})
	spliced := buf.String()

	edits := []struct {
		name string
		edit func() error
	}{
		{"insert into leading context", func() error { return buf.Insert(2, "!") }},
		{"insert into trailing context", func() error { return buf.Insert(buf.Len()-1, "!") }},
		{"insert after trailing context", func() error { return buf.Insert(buf.Len(), "!") }},
		{"delete leading separator", func() error { return buf.Delete(3, 4) }},
		{"delete across region start", func() error { return buf.Delete(2, 6) }},
		{"replace across region end", func() error {
			sp := s.EditableSpan()
			return buf.Replace(sp.End-1, sp.End+2, "!")
		}},
	}
	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.edit(); !errors.Is(err, buffer.ErrReadOnly) {
				t.Fatalf("err = %v, want ErrReadOnly", err)
			}
			if got := buf.String(); got != spliced {
				t.Fatalf("rejected edit changed buffer to %q", got)
			}
		})
	}
}

func TestSeparatorBelongsToContext(t *testing.T) {
	// An unterminated editable block gets a newline prepended to the
	// trailing context so that context starts on its own line. The
	// separator is protected, the block text is not.
	buf := buffer.New("x=1")
	part := block.Partition{After: []block.Block{{ID: "doc.org:9", Text: "z=9\n"}}}
	s := apply(t, buf, part, splice.Options{})

	if got, want := buf.String(), "x=1\nz=9\n"; got != want {
		t.Fatalf("spliced buffer %q, want %q", got, want)
	}
	segs := s.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if got, want := segs[0].Span(), (buffer.Span{Start: 3, End: 8}); got != want {
		t.Fatalf("trailing span %+v, want %+v", got, want)
	}

	// The last editable byte stays deletable, the separator does not.
	if err := buf.Delete(2, 3); err != nil {
		t.Fatalf("delete last editable byte: %v", err)
	}
	if err := buf.Delete(2, 3); !errors.Is(err, buffer.ErrReadOnly) {
		t.Fatalf("delete separator: err = %v, want ErrReadOnly", err)
	}
	if err := s.Unsplice(); err != nil {
		t.Fatalf("Unsplice: %v", err)
	}
	if got, want := buf.String(), "x="; got != want {
		t.Errorf("unspliced %q, want %q", got, want)
	}
}

func TestNarrowOption(t *testing.T) {
	buf := buffer.New("x=1\n")
	s := apply(t, buf, mkPartition([]string{"a=0\n"}, []string{"z=9\n"}), splice.Options{Narrow: true})

	if !buf.Narrowed() {
		t.Fatal("buffer not narrowed")
	}
	if got, want := buf.Accessible(), "x=1\n"; got != want {
		t.Errorf("accessible %q, want %q", got, want)
	}
	if err := buf.Insert(0, "!"); !errors.Is(err, buffer.ErrNarrowed) {
		t.Errorf("insert outside narrowing: err = %v, want ErrNarrowed", err)
	}
	if err := s.Unsplice(); err != nil {
		t.Fatalf("Unsplice: %v", err)
	}
	if buf.Narrowed() {
		t.Error("buffer still narrowed after unsplice")
	}
	if got, want := buf.String(), "x=1\n"; got != want {
		t.Errorf("unspliced %q, want %q", got, want)
	}
}

func TestUnspliceIsIdempotent(t *testing.T) {
	buf := buffer.New("x=1\n")
	s := apply(t, buf, mkPartition([]string{"a=0\n"}, nil), splice.Options{})

	if err := s.Unsplice(); err != nil {
		t.Fatalf("first Unsplice: %v", err)
	}
	if err := s.Unsplice(); err != nil {
		t.Fatalf("second Unsplice: %v", err)
	}
	if got, want := buf.String(), "x=1\n"; got != want {
		t.Errorf("buffer %q, want %q", got, want)
	}
	if s.Spliced() {
		t.Error("splice still active after unsplice")
	}
}

func TestEmptyEditableBlock(t *testing.T) {
	buf := buffer.New("")
	s := apply(t, buf, mkPartition([]string{"a=0\n"}, []string{"z=9\n"}), splice.Options{})

	if got, want := buf.String(), "a=0\nz=9\n"; got != want {
		t.Fatalf("spliced buffer %q, want %q", got, want)
	}
	sp := s.EditableSpan()
	if sp.Start != 4 || sp.End != 4 {
		t.Fatalf("editable span %+v, want empty at 4", sp)
	}
	if err := buf.Insert(sp.Start, "fresh\n"); err != nil {
		t.Fatalf("insert into empty region: %v", err)
	}
	if err := s.Unsplice(); err != nil {
		t.Fatalf("Unsplice: %v", err)
	}
	if got, want := buf.String(), "fresh\n"; got != want {
		t.Errorf("unspliced %q, want %q", got, want)
	}
}

func FuzzSpliceRoundTrip(f *testing.F) {
	f.Add("x=1", "a=0\n", "z=9", "\ny=2", true)
	f.Add("body\n", "", "after\n", "edit", false)
	f.Add("", "head", "", "text\n", false)
	f.Add("no newline", "ctx", "ctx", "", true)
	f.Add("a\nb\nc\n", "one\ntwo\n", "three\n", "d\n", false)

	f.Fuzz(func(t *testing.T, editable, before, after, edit string, narrow bool) {
		buf := buffer.New(editable)
		var part block.Partition
		if before != "" {
			part.Before = []block.Block{{ID: "f.org:1", Text: before}}
		}
		if after != "" {
			part.After = []block.Block{{ID: "f.org:9", Text: after}}
		}

		s, err := splice.Apply(buf, part, splice.Options{Narrow: narrow})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if err := buf.Insert(s.EditableSpan().End, edit); err != nil {
			t.Fatalf("edit at region end: %v", err)
		}
		if err := s.Unsplice(); err != nil {
			t.Fatalf("Unsplice: %v", err)
		}
		if got, want := buf.String(), editable+edit; got != want {
			t.Errorf("round trip %q, want %q", got, want)
		}
	})
}
