// Package session brokers block editing sessions. A session owns the
// spliced buffer for one block, the staging copy of the block's tangle
// target, and the language client activation tied to that copy. All access
// goes through the Registry, which serializes sessions behind one lock.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"weft/internal/block"
	"weft/internal/buffer"
	"weft/internal/splice"
)

var log = commonlog.GetLogger("weft.session")

var (
	ErrUnknownSession   = errors.New("session: unknown session")
	ErrDirectoryMissing = errors.New("session: target directory does not exist")
	ErrPathEscapes      = errors.New("session: target escapes the staging root")
)

// Edit replaces the bytes in [Start, End) with NewText. All edits of one
// batch address the buffer as it was before the batch.
type Edit struct {
	Start   int
	End     int
	NewText string
}

// Session is one live block editing session. Fields are guarded by the
// owning Registry's lock.
type Session struct {
	id          string
	block       block.Block
	buf         *buffer.Buffer
	splice      *splice.Splice
	stagingPath string
	activated   bool
	lastActive  time.Time
}

// View is a point-in-time snapshot of a session, safe to use after the
// registry lock is released.
type View struct {
	ID          string
	Block       block.Block
	Text        string
	Editable    buffer.Span
	Context     []splice.ContextSegment
	Spliced     bool
	Narrowed    bool
	StagingPath string
}

// Registry tracks every live session.
type Registry struct {
	mu       sync.Mutex
	staging  *Staging
	notify   Notifier
	strategy Strategy
	sessions map[string]*Session
	byBlock  map[string]string
}

// NewRegistry creates an empty registry. notify may be nil, in which case
// no activation notifications are sent.
func NewRegistry(staging *Staging, strategy Strategy, notify Notifier) *Registry {
	return &Registry{
		staging:  staging,
		notify:   notify,
		strategy: strategy,
		sessions: make(map[string]*Session),
		byBlock:  make(map[string]string),
	}
}

// Enter opens an editing session for blk, splicing the other blocks of its
// tangle target around the editable text. Entering a block with a live
// session returns that session. A connector failure such as
// ErrDirectoryMissing leaves the session registered with its spliced state
// intact, so a corrected retry reuses it.
func (r *Registry) Enter(blk block.Block, siblings []block.Block, narrow bool) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byBlock[blk.ID]; ok {
		s := r.sessions[id]
		s.lastActive = time.Now()
		if err := r.connect(s, blk); err != nil {
			return View{}, err
		}
		return r.view(s), nil
	}

	if n := block.CountID(siblings, blk.ID); n > 1 {
		log.Warningf("ambiguous identity %s: %d blocks match, first wins", blk.ID, n)
	}

	buf := buffer.New(blk.Text)
	part, _ := block.Resolve(siblings, blk.ID)
	sp, err := splice.Apply(buf, part, splice.Options{Narrow: narrow})
	if err != nil {
		return View{}, fmt.Errorf("failed to splice context for %s: %w", blk.ID, err)
	}

	s := &Session{
		id:         uuid.New().String(),
		block:      blk,
		buf:        buf,
		splice:     sp,
		lastActive: time.Now(),
	}
	r.sessions[s.id] = s
	r.byBlock[blk.ID] = s.id

	if err := r.connect(s, blk); err != nil {
		return View{}, err
	}
	return r.view(s), nil
}

// Get returns a snapshot of a live session.
func (r *Registry) Get(id string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return r.view(s), nil
}

// Apply applies a batch of edits to the session buffer. The whole batch is
// validated against the pre-batch buffer before anything mutates, so a
// rejected batch leaves the buffer untouched.
func (r *Registry) Apply(id string, edits []Edit) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if err := applyEdits(s.buf, edits); err != nil {
		return View{}, err
	}
	s.lastActive = time.Now()
	// The staging copy tracks the buffer so attached language tooling
	// sees current text. A failed refresh never voids the edit itself.
	if s.stagingPath != "" {
		if _, err := r.staging.Stage(s.id, s.block, []byte(s.buf.String())); err != nil {
			log.Errorf("failed to refresh staging for %s: %v", s.id, err)
		}
	}
	return r.view(s), nil
}

// Exit removes the spliced context, closes the session, and returns a final
// snapshot whose Text is exactly the edited block text.
func (r *Registry) Exit(id string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if err := s.splice.Unsplice(); err != nil {
		return View{}, fmt.Errorf("failed to remove context for %s: %w", id, err)
	}
	v := r.view(s)
	r.drop(s)
	return v, nil
}

// Sweep closes every session idle for longer than ttl and returns the
// closed session ids.
func (r *Registry) Sweep(ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var swept []string
	for id, s := range r.sessions {
		if s.lastActive.Before(cutoff) {
			r.drop(s)
			swept = append(swept, id)
		}
	}
	return swept
}

// CloseAll discards every session and its staging files.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		r.drop(s)
	}
}

// connect runs the connector step: stage the buffer under the block's
// target path and activate the language client. Untangled blocks skip it.
func (r *Registry) connect(s *Session, blk block.Block) error {
	if !blk.Tangled() {
		return nil
	}
	if s.stagingPath == "" {
		path, err := r.staging.Stage(s.id, blk, []byte(s.buf.String()))
		if err != nil {
			return err
		}
		s.stagingPath = path
	}
	r.activate(s)
	return nil
}

func (r *Registry) drop(s *Session) {
	if err := r.staging.Remove(s.id); err != nil {
		log.Errorf("failed to remove staging for %s: %v", s.id, err)
	}
	delete(r.sessions, s.id)
	delete(r.byBlock, s.block.ID)
}

func (r *Registry) view(s *Session) View {
	return View{
		ID:          s.id,
		Block:       s.block,
		Text:        s.buf.String(),
		Editable:    s.splice.EditableSpan(),
		Context:     s.splice.Segments(),
		Spliced:     s.splice.Spliced(),
		Narrowed:    s.buf.Narrowed(),
		StagingPath: s.stagingPath,
	}
}

// applyEdits applies a batch back to front so every edit addresses offsets
// of the pre-batch buffer. Edits inserting at the same offset keep their
// batch order.
func applyEdits(buf *buffer.Buffer, edits []Edit) error {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i].End > sorted[i+1].Start {
			return fmt.Errorf("session: edits overlap at [%d,%d) and [%d,%d)",
				sorted[i].Start, sorted[i].End, sorted[i+1].Start, sorted[i+1].End)
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := buf.CanReplace(sorted[i].Start, sorted[i].End); err != nil {
			return err
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := buf.Replace(sorted[i].Start, sorted[i].End, sorted[i].NewText); err != nil {
			return err
		}
	}
	return nil
}
