// Package syntax runs tree-sitter over block text and reports parse
// errors. It exists so the editor can surface broken syntax in an edited
// block without waiting for the attached language server.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage is returned when no grammar is registered for a
// block language.
var ErrUnsupportedLanguage = errors.New("syntax: unsupported language")

// languages maps block language names, including common aliases, to their
// grammars.
var languages = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"golang":     golang.GetLanguage,
	"javascript": javascript.GetLanguage,
	"js":         javascript.GetLanguage,
	"py":         python.GetLanguage,
	"python":     python.GetLanguage,
	"rs":         rust.GetLanguage,
	"rust":       rust.GetLanguage,
	"ts":         typescript.GetLanguage,
	"typescript": typescript.GetLanguage,
}

// Supported reports whether a grammar is registered for language.
func Supported(language string) bool {
	_, ok := languages[strings.ToLower(language)]
	return ok
}

// Languages lists the registered language names.
func Languages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	return names
}

// Diagnostic is one parse problem, with zero based positions into the
// checked text.
type Diagnostic struct {
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
	Message   string
}

// Checker parses block text and collects syntax diagnostics. A Checker is
// safe for concurrent use; parses are serialized internally.
type Checker struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewChecker returns a ready Checker.
func NewChecker() *Checker {
	return &Checker{parser: sitter.NewParser()}
}

// Close releases the underlying parser.
func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parser != nil {
		c.parser.Close()
		c.parser = nil
	}
}

// Check parses text as language and returns its parse problems, nil when
// the text is clean. Languages without a registered grammar yield
// ErrUnsupportedLanguage.
func (c *Checker) Check(ctx context.Context, language string, text []byte) ([]Diagnostic, error) {
	get, ok := languages[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parser == nil {
		return nil, errors.New("syntax: checker is closed")
	}
	c.parser.SetLanguage(get())
	tree, err := c.parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", language, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var diags []Diagnostic
	collectErrors(root, &diags)
	return diags, nil
}

// collectErrors walks only subtrees that contain errors and records every
// error or missing node.
func collectErrors(n *sitter.Node, diags *[]Diagnostic) {
	if n == nil || !n.HasError() {
		return
	}
	switch {
	case n.Type() == "ERROR":
		*diags = append(*diags, diagnosticFor(n, "syntax error"))
	case n.IsMissing():
		*diags = append(*diags, diagnosticFor(n, fmt.Sprintf("missing %s", n.Type())))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectErrors(n.Child(i), diags)
	}
}

func diagnosticFor(n *sitter.Node, message string) Diagnostic {
	start, end := n.StartPoint(), n.EndPoint()
	return Diagnostic{
		StartLine: start.Row,
		StartCol:  start.Column,
		EndLine:   end.Row,
		EndCol:    end.Column,
		Message:   message,
	}
}
