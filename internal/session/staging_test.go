package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"weft/internal/block"
	"weft/internal/session"
)

func newStaging(t *testing.T) (*session.Staging, string) {
	t.Helper()
	root := t.TempDir()
	st, err := session.NewStaging(root)
	if err != nil {
		t.Fatalf("NewStaging: %v", err)
	}
	return st, root
}

func TestStageDirectoryPolicy(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		args    map[string]string
		preDirs string // created under the session dir before staging
		wantErr error
	}{
		{
			name:    "missing dir without directive",
			target:  "sub/dir/out.py",
			wantErr: session.ErrDirectoryMissing,
		},
		{
			name:   "missing dir with affirmative directive",
			target: "sub/dir/out.py",
			args:   map[string]string{"mkdirp": "YES"},
		},
		{
			name:    "existing dir without directive",
			target:  "sub/dir/out.py",
			preDirs: "sub/dir",
		},
		{
			name:    "negative directive",
			target:  "sub/out.py",
			args:    map[string]string{"mkdirp": "no"},
			wantErr: session.ErrDirectoryMissing,
		},
		{
			name:   "flat target without directive",
			target: "out.py",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, root := newStaging(t)
			if tt.preDirs != "" {
				if err := os.MkdirAll(filepath.Join(root, "s1", tt.preDirs), 0o700); err != nil {
					t.Fatalf("MkdirAll: %v", err)
				}
			}
			blk := block.Block{Target: tt.target, HeaderArgs: tt.args}

			path, err := st.Stage("s1", blk, []byte("content\n"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Stage: err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stage: %v", err)
			}
			want := filepath.Join(root, "s1", filepath.FromSlash(tt.target))
			if path != want {
				t.Errorf("path = %s, want %s", path, want)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(data) != "content\n" {
				t.Errorf("staged content = %q", data)
			}
		})
	}
}

func TestStageRejectsEscapingTargets(t *testing.T) {
	st, _ := newStaging(t)
	for _, target := range []string{"../evil.py", "/etc/evil.py", "sub/../../evil.py"} {
		blk := block.Block{Target: target}
		if _, err := st.Stage("s1", blk, nil); !errors.Is(err, session.ErrPathEscapes) {
			t.Errorf("Stage(%q): err = %v, want ErrPathEscapes", target, err)
		}
	}
}

func TestStageIsRepeatable(t *testing.T) {
	st, _ := newStaging(t)
	blk := block.Block{Target: "out.py"}
	if _, err := st.Stage("s1", blk, []byte("one\n")); err != nil {
		t.Fatalf("first Stage: %v", err)
	}
	path, err := st.Stage("s1", blk, []byte("two\n"))
	if err != nil {
		t.Fatalf("second Stage: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two\n" {
		t.Errorf("content after restage = %q", data)
	}
}

func TestRemove(t *testing.T) {
	st, root := newStaging(t)
	if _, err := st.Stage("s1", block.Block{Target: "out.py"}, nil); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := st.Remove("s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "s1")); !os.IsNotExist(err) {
		t.Errorf("session dir survived Remove: %v", err)
	}

	// An empty id must not take the root down with it.
	if err := st.Remove(""); err != nil {
		t.Fatalf("Remove(\"\"): %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("staging root gone after Remove(\"\"): %v", err)
	}
}

func TestDefaultStagingRoot(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	root, err := session.DefaultStagingRoot()
	if err != nil {
		t.Fatalf("DefaultStagingRoot: %v", err)
	}
	if want := filepath.Join(state, "weft", "staging"); root != want {
		t.Errorf("root = %s, want %s", root, want)
	}
}
