package litparse

import (
	"context"
	"regexp"
	"strings"

	"weft/internal/block"
)

var (
	orgBeginRe   = regexp.MustCompile(`(?i)^(\s*)#\+begin_src(?:\s+(\S+))?\s*(.*)$`)
	orgEndRe     = regexp.MustCompile(`(?i)^\s*#\+end_src\s*$`)
	orgNameRe    = regexp.MustCompile(`(?i)^\s*#\+name:\s*(\S+)\s*$`)
	orgKeywordRe = regexp.MustCompile(`^\s*#\+\S`)
)

// OrgParser extracts begin_src blocks from Org documents. Header arguments
// on the opener, :tangle and :mkdirp among them, are recorded verbatim. A
// #+name keyword names the next block as long as only blank lines or other
// keywords separate the two. Unterminated blocks are dropped.
type OrgParser struct{}

func (OrgParser) Extract(ctx context.Context, doc string, content []byte) ([]block.Block, error) {
	lines := splitLines(content)
	var blocks []block.Block

	var (
		cur     *block.Block
		indent  string
		body    []string
		pending string
	)

	for i, line := range lines {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if cur != nil {
			if orgEndRe.MatchString(line) {
				cur.Text = joinBody(body)
				cur.BodyEnd = i
				blocks = append(blocks, *cur)
				cur, body = nil, nil
				continue
			}
			body = append(body, stripIndent(line, indent))
			continue
		}

		if m := orgNameRe.FindStringSubmatch(line); m != nil {
			pending = m[1]
			continue
		}
		if m := orgBeginRe.FindStringSubmatch(line); m != nil {
			lang, rest := m[2], m[3]
			if strings.HasPrefix(lang, ":") {
				// No language, the first token already starts the
				// header arguments.
				rest = lang + " " + rest
				lang = ""
			}
			args := parseOrgHeaderArgs(rest)
			cur = &block.Block{
				ID:         block.NewID(doc, i),
				Name:       pending,
				Language:   lang,
				Doc:        doc,
				Target:     args["tangle"],
				Line:       i,
				BodyStart:  i + 1,
				HeaderArgs: args,
			}
			indent = m[1]
			body = nil
			pending = ""
			continue
		}
		// A pending name survives only blank lines and other keywords.
		if strings.TrimSpace(line) != "" && !orgKeywordRe.MatchString(line) {
			pending = ""
		}
	}

	return finalize(doc, blocks), nil
}

// parseOrgHeaderArgs splits ":key value value :key2 ..." into a map. Keys
// are lowercased, values unquoted. A key without a value maps to "".
func parseOrgHeaderArgs(rest string) map[string]string {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	args := make(map[string]string)
	var key string
	var val []string
	flush := func() {
		if key != "" {
			args[key] = unquote(strings.Join(val, " "))
		}
	}
	for _, f := range fields {
		if strings.HasPrefix(f, ":") && len(f) > 1 {
			flush()
			key = strings.ToLower(f[1:])
			val = val[:0]
			continue
		}
		val = append(val, f)
	}
	flush()
	if len(args) == 0 {
		return nil
	}
	return args
}
