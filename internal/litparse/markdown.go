package litparse

import (
	"context"
	"strings"

	"weft/internal/block"
)

// MarkdownParser extracts fenced code blocks from Markdown documents. The
// info string carries the language followed by key=value attributes:
//
//	```python tangle=src/util.py name=helpers mkdirp=yes
//
// file= is accepted as an alias for tangle=. Fences open with three or more
// backticks or tildes and close with a fence of the same character at least
// as long. Unterminated fences are dropped.
type MarkdownParser struct{}

func (MarkdownParser) Extract(ctx context.Context, doc string, content []byte) ([]block.Block, error) {
	lines := splitLines(content)
	var blocks []block.Block

	var (
		cur    *block.Block
		fence  string
		indent string
		body   []string
	)

	for i, line := range lines {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if cur != nil {
			if closesFence(line, fence) {
				cur.Text = joinBody(body)
				cur.BodyEnd = i
				blocks = append(blocks, *cur)
				cur, body = nil, nil
				continue
			}
			body = append(body, stripIndent(line, indent))
			continue
		}

		open, ind, info, ok := openFence(line)
		if !ok {
			continue
		}
		lang, args := parseInfoString(info)
		target := args["tangle"]
		if target == "" {
			target = args["file"]
		}
		cur = &block.Block{
			ID:         block.NewID(doc, i),
			Name:       args["name"],
			Language:   lang,
			Doc:        doc,
			Target:     target,
			Line:       i,
			BodyStart:  i + 1,
			HeaderArgs: args,
		}
		fence = open
		indent = ind
		body = nil
	}

	return finalize(doc, blocks), nil
}

// openFence recognizes a fence opener and returns the fence run, its
// indentation and the info string.
func openFence(line string) (fence, indent, info string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent = line[:len(line)-len(trimmed)]
	if trimmed == "" {
		return "", "", "", false
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return "", "", "", false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return "", "", "", false
	}
	info = strings.TrimSpace(trimmed[n:])
	// A backtick fence cannot carry backticks in its info string.
	if c == '`' && strings.ContainsRune(info, '`') {
		return "", "", "", false
	}
	return trimmed[:n], indent, info, true
}

// closesFence reports whether line closes a fence opened with fence: the
// same character, at least as long, and nothing else.
func closesFence(line, fence string) bool {
	t := strings.TrimSpace(line)
	if len(t) < len(fence) {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] != fence[0] {
			return false
		}
	}
	return true
}

// parseInfoString splits a fence info string into the block language and
// its key=value attributes. Keys are lowercased, values unquoted. Pandoc
// style braces and a leading dot on the language are tolerated.
func parseInfoString(info string) (string, map[string]string) {
	var lang string
	var args map[string]string
	for _, tok := range strings.Fields(info) {
		tok = strings.Trim(tok, "{}")
		if tok == "" {
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq > 0 {
			if args == nil {
				args = make(map[string]string)
			}
			args[strings.ToLower(tok[:eq])] = unquote(tok[eq+1:])
			continue
		}
		if lang == "" {
			lang = strings.TrimPrefix(tok, ".")
		}
	}
	return lang, args
}
