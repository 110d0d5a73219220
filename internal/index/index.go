// Package index maintains the workspace block index: every source block
// extracted from the literate documents under a root, queryable by document
// and by tangle target. Durable state lives in a sqlite store; documents
// open in the editor overlay it with their unsaved content.
package index

import (
	"errors"
	"sort"
	"sync"

	"weft/internal/block"
)

// ErrNotFound is returned when a document is not in the store.
var ErrNotFound = errors.New("index: document not found")

// DocumentRecord is the indexed state of one literate document.
type DocumentRecord struct {
	Path         string
	LastModified int64
}

// Store is the durable half of the index. Document paths are relative to
// the workspace root.
type Store interface {
	// PutDocument replaces a document's record and all its blocks.
	PutDocument(doc string, lastModified int64, blocks []block.Block) error
	// DeleteDocument removes a document and its blocks.
	DeleteDocument(doc string) error
	// Document looks up one document record.
	Document(doc string) (DocumentRecord, error)
	// Documents lists all indexed documents.
	Documents() ([]DocumentRecord, error)
	// Blocks returns a document's blocks in document order.
	Blocks(doc string) ([]block.Block, error)
	// BlocksForTarget returns every block tangled to target, ordered by
	// document then position.
	BlocksForTarget(target string) ([]block.Block, error)
	// Targets lists the distinct tangle targets.
	Targets() ([]string, error)

	Close() error
}

// Index answers block queries, preferring the overlay of open documents
// over stored state. It is safe for concurrent use.
type Index struct {
	store Store

	mu   sync.RWMutex
	open map[string][]block.Block
}

// New wraps a store.
func New(store Store) *Index {
	return &Index{
		store: store,
		open:  make(map[string][]block.Block),
	}
}

// Store exposes the underlying store.
func (ix *Index) Store() Store { return ix.store }

// SetOpen records the current blocks of a document open in the editor. They
// shadow the stored blocks until ClearOpen.
func (ix *Index) SetOpen(doc string, blocks []block.Block) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.open[doc] = blocks
}

// ClearOpen drops a document's overlay.
func (ix *Index) ClearOpen(doc string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.open, doc)
}

// Blocks returns a document's blocks, from the overlay when the document is
// open.
func (ix *Index) Blocks(doc string) ([]block.Block, error) {
	ix.mu.RLock()
	blocks, ok := ix.open[doc]
	ix.mu.RUnlock()
	if ok {
		out := make([]block.Block, len(blocks))
		copy(out, blocks)
		return out, nil
	}
	return ix.store.Blocks(doc)
}

// BlocksForTarget returns every block tangled to target across the
// workspace, ordered by document then position. Open documents contribute
// their overlay blocks instead of their stored ones.
func (ix *Index) BlocksForTarget(target string) ([]block.Block, error) {
	stored, err := ix.store.BlocksForTarget(target)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var merged []block.Block
	for _, b := range stored {
		if _, open := ix.open[b.Doc]; !open {
			merged = append(merged, b)
		}
	}
	for _, blocks := range ix.open {
		for _, b := range blocks {
			if b.Target == target {
				merged = append(merged, b)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Doc != merged[j].Doc {
			return merged[i].Doc < merged[j].Doc
		}
		return merged[i].Line < merged[j].Line
	})
	return merged, nil
}

// BlockAt finds the first block of doc whose extent covers the given
// 0-based line. The opening keyword, body and closing line all count.
func (ix *Index) BlockAt(doc string, line int) (block.Block, bool, error) {
	blocks, err := ix.Blocks(doc)
	if err != nil {
		return block.Block{}, false, err
	}
	for _, b := range blocks {
		if line >= b.Line && line <= b.BodyEnd {
			return b, true, nil
		}
	}
	return block.Block{}, false, nil
}

// Targets lists the distinct tangle targets known to the index, overlay
// included.
func (ix *Index) Targets() ([]string, error) {
	targets, err := ix.store.Targets()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		seen[t] = true
	}

	ix.mu.RLock()
	for _, blocks := range ix.open {
		for _, b := range blocks {
			if b.Tangled() && !seen[b.Target] {
				seen[b.Target] = true
				targets = append(targets, b.Target)
			}
		}
	}
	ix.mu.RUnlock()

	sort.Strings(targets)
	return targets, nil
}
