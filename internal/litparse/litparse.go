// Package litparse extracts source blocks from literate documents. Two
// dialects are supported: Org documents using begin_src/end_src keywords
// and Markdown documents using fenced code blocks with key=value
// attributes.
package litparse

import (
	"context"
	"path/filepath"
	"strings"

	"weft/internal/block"
)

// Parser extracts the source blocks of one document dialect.
type Parser interface {
	// Extract scans content and returns the document's source blocks in
	// order of appearance. doc is the document path recorded on each
	// block.
	Extract(ctx context.Context, doc string, content []byte) ([]block.Block, error)
}

// ForPath picks the parser for a document by file extension.
func ForPath(path string) (Parser, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".org":
		return OrgParser{}, true
	case ".md", ".markdown":
		return MarkdownParser{}, true
	default:
		return nil, false
	}
}

// Supported reports whether path belongs to a known literate dialect.
func Supported(path string) bool {
	_, ok := ForPath(path)
	return ok
}

// checkEvery is how many scanned lines pass between context checks.
const checkEvery = 4096

// tangleExts maps block languages to the file extension used when a block
// tangles to "yes", meaning a file named after the document.
var tangleExts = map[string]string{
	"bash":       "sh",
	"c":          "c",
	"elisp":      "el",
	"emacs-lisp": "el",
	"go":         "go",
	"javascript": "js",
	"js":         "js",
	"python":     "py",
	"ruby":       "rb",
	"rust":       "rs",
	"sh":         "sh",
	"typescript": "ts",
}

// finalize resolves "yes" tangle targets against the document name and
// assigns each block its ordinal among the document's blocks sharing its
// target.
func finalize(doc string, blocks []block.Block) []block.Block {
	counts := make(map[string]int, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if strings.EqualFold(b.Target, "yes") {
			b.Target = selfTarget(doc, b.Language)
		}
		b.Ordinal = counts[b.Target]
		counts[b.Target]++
	}
	return blocks
}

// selfTarget names the output file of a block tangled to "yes": the
// document path with the language's extension.
func selfTarget(doc, language string) string {
	ext, ok := tangleExts[strings.ToLower(language)]
	if !ok {
		if language == "" {
			return strings.TrimSuffix(doc, filepath.Ext(doc))
		}
		ext = strings.ToLower(language)
	}
	return strings.TrimSuffix(doc, filepath.Ext(doc)) + "." + ext
}

// stripIndent removes the indentation of the block opener from a content
// line, so indented blocks tangle flush with column zero.
func stripIndent(line, indent string) string {
	if indent == "" {
		return line
	}
	if strings.HasPrefix(line, indent) {
		return line[len(indent):]
	}
	return line
}

// joinBody turns collected content lines into block text. Non-empty bodies
// are newline terminated, matching the convention that every tangled block
// contributes whole lines.
func joinBody(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// unquote strips one level of surrounding quotes from a directive value.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func splitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}
