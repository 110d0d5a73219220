// Package block defines the source-block model shared by the literate
// document extractor, the block index and the splice engine, together with
// the resolver that partitions a tangle target's blocks around the block
// being edited.
package block

import (
	"fmt"
	"strings"
)

// ID identifies a block structurally. It is assigned by the extractor from
// the block's source position ("<document>:<line>") and is therefore unique
// within a workspace, unlike the user-chosen name label.
type ID = string

// Block is one source block extracted from a literate document.
type Block struct {
	ID       ID
	Name     string // advisory #+name: / name= label, may be empty or reused
	Language string
	Doc      string // path of the literate document the block came from
	Target   string // tangle output path relative to the document, "" if untangled

	// Text is the literal block body as it would be tangled, including its
	// own trailing-newline convention.
	Text string

	// Line is the 0-based line of the block's opening keyword or fence.
	// BodyStart/BodyEnd delimit the body as a half-open line range.
	Line      int
	BodyStart int
	BodyEnd   int

	// Ordinal is the 0-based position among the document's blocks that share
	// the same target.
	Ordinal int

	// HeaderArgs carries the remaining header arguments (":mkdirp yes" style
	// switches) keyed without their leading colon.
	HeaderArgs map[string]string
}

// NewID builds the structural identity for a block that opens at the given
// 0-based line of doc.
func NewID(doc string, line int) ID {
	return fmt.Sprintf("%s:%d", doc, line)
}

// Tangled reports whether the block contributes to an output file. An
// explicit ":tangle no" counts as untangled.
func (b Block) Tangled() bool {
	return b.Target != "" && !strings.EqualFold(b.Target, "no")
}

// Mkdirp returns the directory-creation directive and whether one was given
// at all. The connector only creates missing parent directories when the
// value is affirmatively "yes", compared case-insensitively.
func (b Block) Mkdirp() (string, bool) {
	v, ok := b.HeaderArgs["mkdirp"]
	return v, ok
}

// MkdirpAffirmative reports whether the block affirmatively allows parent
// directory creation.
func (b Block) MkdirpAffirmative() bool {
	v, ok := b.Mkdirp()
	return ok && strings.EqualFold(strings.TrimSpace(v), "yes")
}
