package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"weft/internal/litparse"
)

// Watcher keeps the store in sync with on-disk edits to literate documents
// under the workspace root. Rapid successive writes to one document are
// debounced into a single refresh.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   Store
	root    string

	// Debounce is the quiet period after the last write before a document
	// is reindexed. Set it before Start.
	Debounce time.Duration

	// OnUpdate, when set before Start, is called after a document has
	// been reindexed. It runs on the watcher goroutine.
	OnUpdate func(doc string)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the documents under root.
func NewWatcher(root string, store Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		store:    store,
		root:     root,
		Debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches every non-hidden directory under the root and begins
// processing events. It is non-blocking and a no-op when already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Warningf("watch: cannot watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop halts event processing and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		log.Errorf("watch: close: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watch: %v", err)
		case <-ticker.C:
			w.flush(ctx, pending)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, pending map[string]time.Time) {
	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return
	}

	// New directories join the watch set so documents created inside
	// them are picked up.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := w.watcher.Add(event.Name); err != nil {
					log.Warningf("watch: cannot watch %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !litparse.Supported(event.Name) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	pending[filepath.ToSlash(rel)] = time.Now()
}

func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time) {
	now := time.Now()
	for rel, stamp := range pending {
		if now.Sub(stamp) < w.Debounce {
			continue
		}
		delete(pending, rel)
		if err := Refresh(ctx, w.store, w.root, rel); err != nil {
			log.Errorf("watch: refresh %s: %v", rel, err)
			continue
		}
		log.Debugf("watch: refreshed %s", rel)
		if w.OnUpdate != nil {
			w.OnUpdate(rel)
		}
	}
}
