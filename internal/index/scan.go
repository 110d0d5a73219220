package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"weft/internal/litparse"
)

var log = commonlog.GetLogger("weft.index")

// scanWorkers bounds concurrent document parsing during a scan.
const scanWorkers = 4

// Scan walks the subtree under root and refreshes the store with every
// literate document that changed on disk since it was indexed. Any file or
// directory whose name begins with "." is skipped entirely. Documents that
// disappeared from disk are pruned. Per document failures are logged, not
// fatal; Scan returns only when all updates have completed.
func Scan(ctx context.Context, store Store, root string) error {
	known, err := store.Documents()
	if err != nil {
		return err
	}
	indexed := make(map[string]int64, len(known))
	for _, rec := range known {
		indexed[rec.Path] = rec.LastModified
	}

	seen := make(map[string]bool)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(scanWorkers)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("scan: walk error: %v", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !litparse.Supported(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime().Unix()
		if prev, ok := indexed[rel]; ok && prev == mtime {
			return nil
		}

		eg.Go(func() error {
			if err := indexDocument(ctx, store, root, rel, mtime); err != nil {
				log.Errorf("scan: index %s: %v", rel, err)
			}
			return nil
		})
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}

	for _, rec := range known {
		if seen[rec.Path] {
			continue
		}
		if err := store.DeleteDocument(rec.Path); err != nil {
			log.Errorf("scan: prune %s: %v", rec.Path, err)
		} else {
			log.Infof("scan: pruned deleted document %s", rec.Path)
		}
	}
	return nil
}

// Refresh reindexes one document from disk, pruning it when it no longer
// exists. rel is the document path relative to root.
func Refresh(ctx context.Context, store Store, root, rel string) error {
	info, err := os.Stat(filepath.Join(root, rel))
	if os.IsNotExist(err) {
		return store.DeleteDocument(rel)
	}
	if err != nil {
		return err
	}
	return indexDocument(ctx, store, root, rel, info.ModTime().Unix())
}

func indexDocument(ctx context.Context, store Store, root, rel string, mtime int64) error {
	parser, ok := litparse.ForPath(rel)
	if !ok {
		return nil
	}
	content, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	blocks, err := parser.Extract(ctx, rel, content)
	if err != nil {
		return err
	}
	return store.PutDocument(rel, mtime, blocks)
}
