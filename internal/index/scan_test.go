package index_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weft/internal/index"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

const orgDoc = `#+begin_src python :tangle out/app.py
import os
#+end_src
`

const mdDoc = "```go tangle=main.go\npackage main\n```\n"

func TestScanIndexesWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.org", orgDoc)
	writeFile(t, root, "sub/readme.md", mdDoc)
	writeFile(t, root, "sub/plain.txt", "not literate\n")
	writeFile(t, root, ".git/config.org", orgDoc)

	store := newStore(t)
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	docs, err := store.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	if len(paths) != 2 || paths[0] != "notes.org" || paths[1] != "sub/readme.md" {
		t.Fatalf("indexed documents = %v", paths)
	}

	blocks, err := store.Blocks("notes.org")
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Target != "out/app.py" {
		t.Errorf("org blocks = %+v", blocks)
	}
}

func TestScanSkipsFreshDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.org", orgDoc)

	store := newStore(t)
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// Rewrite the file but keep the recorded mtime so the rescan treats it
	// as fresh and leaves the stored blocks alone.
	rec, err := store.Document("notes.org")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	writeFile(t, root, "notes.org", "#+begin_src sh\nnew\n#+end_src\n")
	stamp := time.Unix(rec.LastModified, 0)
	if err := os.Chtimes(filepath.Join(root, "notes.org"), stamp, stamp); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	blocks, err := store.Blocks("notes.org")
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Language != "python" {
		t.Errorf("fresh document was reindexed: %+v", blocks)
	}

	// Bump the mtime and the rescan must pick the new content up.
	later := stamp.Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(root, "notes.org"), later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	blocks, err = store.Blocks("notes.org")
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Language != "sh" {
		t.Errorf("stale document not reindexed: %+v", blocks)
	}
}

func TestScanPrunesDeletedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gone.org", orgDoc)
	writeFile(t, root, "kept.org", orgDoc)

	store := newStore(t)
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "gone.org")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := index.Scan(context.Background(), store, root); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	docs, err := store.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Path != "kept.org" {
		t.Errorf("documents after prune = %+v", docs)
	}
}

func TestRefreshDeletesMissingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md", mdDoc)

	store := newStore(t)
	if err := index.Refresh(context.Background(), store, root, "doc.md"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := store.Document("doc.md"); err != nil {
		t.Fatalf("Document: %v", err)
	}

	if err := os.Remove(filepath.Join(root, "doc.md")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := index.Refresh(context.Background(), store, root, "doc.md"); err != nil {
		t.Fatalf("Refresh after delete: %v", err)
	}
	docs, err := store.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("documents after refresh-delete = %+v", docs)
	}
}
