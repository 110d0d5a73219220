package server

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// positionToOffset computes the byte offset of an LSP position, whose
// character field counts UTF-16 code units. Positions past the end of a
// line or of the document clamp instead of failing.
func positionToOffset(document string, pos protocol.Position) int {
	lines := strings.Split(document, "\n")
	if int(pos.Line) >= len(lines) {
		pos.Line = uint32(len(lines) - 1)
	}
	offset := 0
	for i := uint32(0); i < pos.Line; i++ {
		offset += len(lines[i]) + 1
	}
	var units, bytes int
	for _, r := range lines[pos.Line] {
		n := 1
		if r > 0xFFFF {
			n = 2
		}
		if uint32(units+n) > pos.Character {
			break
		}
		units += n
		bytes += utf8.RuneLen(r)
	}
	return offset + bytes
}

// offsetToPosition converts a byte offset back into an LSP position.
func offsetToPosition(document string, offset int) protocol.Position {
	if offset > len(document) {
		offset = len(document)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := document[:offset]
	line := strings.Count(prefix, "\n")
	start := strings.LastIndexByte(prefix, '\n') + 1
	var units uint32
	for _, r := range prefix[start:] {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return protocol.Position{Line: uint32(line), Character: units}
}

// applyChange splices one incremental content change into document.
func applyChange(document string, rng protocol.Range, text string) string {
	start := positionToOffset(document, rng.Start)
	end := positionToOffset(document, rng.End)
	if end < start {
		start, end = end, start
	}
	return document[:start] + text + document[end:]
}
