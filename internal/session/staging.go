package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weft/internal/block"
)

// Staging owns the directory tree that holds per-session copies of tangle
// targets, one subdirectory per session.
type Staging struct {
	root string
}

// DefaultStagingRoot returns the staging directory under the XDG state
// home.
func DefaultStagingRoot() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "weft", "staging"), nil
}

// NewStaging creates the staging root if needed. An empty root selects
// DefaultStagingRoot.
func NewStaging(root string) (*Staging, error) {
	if root == "" {
		var err error
		if root, err = DefaultStagingRoot(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging root: %w", err)
	}
	return &Staging{root: root}, nil
}

// Root returns the staging root directory.
func (st *Staging) Root() string { return st.root }

// Stage writes content to the session's staging copy of the block's target
// and returns its absolute path. Directories named by the target must
// already exist unless the block affirmatively allows creating them.
func (st *Staging) Stage(sessionID string, blk block.Block, content []byte) (string, error) {
	rel := filepath.FromSlash(blk.Target)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, blk.Target)
	}
	dir := filepath.Join(st.root, sessionID)
	path := filepath.Join(dir, rel)
	if inside, err := filepath.Rel(dir, path); err != nil ||
		inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, blk.Target)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if !blk.MkdirpAffirmative() {
			return "", fmt.Errorf("%w: %s", ErrDirectoryMissing, parent)
		}
		if err := os.MkdirAll(parent, 0o700); err != nil {
			return "", fmt.Errorf("failed to create target directory: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat target directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	return path, nil
}

// Remove deletes a session's staging subdirectory.
func (st *Staging) Remove(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(st.root, sessionID))
}
