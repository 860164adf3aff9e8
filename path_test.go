package cvfs_test

import (
	"testing"

	"github.com/KarpelesLab/cvfs"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/":                 "/",
		"":                  "/",
		"docs":              "/docs",
		"/docs/":            "/docs",
		"/docs//note.txt":   "/docs/note.txt",
		"/docs/./note.txt":  "/docs/note.txt",
		"/docs/../note.txt": "/note.txt",
		"/../../etc":        "/etc",
		"/a/b/../../c":      "/c",
	}

	for in, want := range cases {
		if got := cvfs.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		abs, parent, base string
	}{
		{"/docs", "/", "docs"},
		{"/docs/note.txt", "/docs", "note.txt"},
		{"/a/b/c", "/a/b", "c"},
	}

	for _, tc := range cases {
		parent, base := cvfs.Split(tc.abs)
		if parent != tc.parent || base != tc.base {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tc.abs, parent, base, tc.parent, tc.base)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := cvfs.Join("/", "hi.txt"); got != "/hi.txt" {
		t.Errorf("Join(/, hi.txt) = %q, want /hi.txt", got)
	}
	if got := cvfs.Join("/docs", "hi.txt"); got != "/docs/hi.txt" {
		t.Errorf("Join(/docs, hi.txt) = %q, want /docs/hi.txt", got)
	}
}
