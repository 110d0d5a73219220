package server

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath converts a file:// URI into a filesystem path.
func uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("uri %q carries no path", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

// pathToURI builds the file:// URI of a filesystem path.
func pathToURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// relDoc rebases an absolute document path onto the workspace root, in the
// slash form the index keys documents by.
func (s *Server) relDoc(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("document %s is outside the workspace", abs)
	}
	return filepath.ToSlash(rel), nil
}

// uriDoc resolves a document URI to its workspace-relative path.
func (s *Server) uriDoc(uri string) (string, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return "", err
	}
	return s.relDoc(path)
}

// docURI rebuilds the file URI of a workspace-relative document path.
func (s *Server) docURI(doc string) string {
	return pathToURI(filepath.Join(s.root, filepath.FromSlash(doc)))
}
