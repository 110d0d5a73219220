package server

import "testing"

func TestURIToPath(t *testing.T) {
	cases := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{"plain", "file:///tmp/ws/doc.org", "/tmp/ws/doc.org", false},
		{"escaped space", "file:///tmp/my%20notes/doc.org", "/tmp/my notes/doc.org", false},
		{"http rejected", "http://example.com/doc.org", "", true},
		{"no path", "file://", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := uriToPath(tc.uri)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("uriToPath(%q) succeeded with %q, want error", tc.uri, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("uriToPath(%q): %v", tc.uri, err)
			}
			if got != tc.want {
				t.Fatalf("uriToPath(%q) = %q, want %q", tc.uri, got, tc.want)
			}
		})
	}
}

func TestRelDoc(t *testing.T) {
	s := &Server{root: "/tmp/ws"}

	got, err := s.relDoc("/tmp/ws/sub/doc.org")
	if err != nil {
		t.Fatalf("relDoc: %v", err)
	}
	if got != "sub/doc.org" {
		t.Fatalf("relDoc = %q, want %q", got, "sub/doc.org")
	}

	if _, err := s.relDoc("/tmp/other/doc.org"); err == nil {
		t.Fatal("relDoc accepted a document outside the workspace")
	}
	// A sibling directory sharing the root's name prefix is still outside.
	if _, err := s.relDoc("/tmp/ws2/doc.org"); err == nil {
		t.Fatal("relDoc accepted a sibling directory document")
	}
}

func TestDocURI(t *testing.T) {
	s := &Server{root: "/tmp/ws"}
	if got := s.docURI("sub/doc.org"); got != "file:///tmp/ws/sub/doc.org" {
		t.Fatalf("docURI = %q", got)
	}
}
