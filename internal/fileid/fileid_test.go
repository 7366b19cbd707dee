package fileid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSourceID(t *testing.T) {
	id := SourceID("/inbox/report.txt")
	if !strings.HasPrefix(id, "file:") {
		t.Errorf("SourceID should start with file:, got %q", id)
	}
	if id != SourceID("/inbox/report.txt") {
		t.Error("same path should yield same id")
	}
	if id == SourceID("/inbox/other.txt") {
		t.Error("different paths should yield different ids")
	}
	if !IsSourceID(id) {
		t.Errorf("IsSourceID(%q) = false", id)
	}
}

func TestSourceID_normalized(t *testing.T) {
	tests := []struct{ a, b string }{
		{"/inbox/./report.txt", "/inbox/report.txt"},
		{"/inbox/sub/../report.txt", "/inbox/report.txt"},
		{filepath.Join("/inbox", "report.txt"), "/inbox/report.txt"},
	}
	for _, tt := range tests {
		if SourceID(tt.a) != SourceID(tt.b) {
			t.Errorf("SourceID(%q) != SourceID(%q)", tt.a, tt.b)
		}
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("hello"))
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a != ContentHash([]byte("hello")) || a == ContentHash([]byte("hello!")) {
		t.Error("hash must depend only on content")
	}
}

func TestIsSourceID(t *testing.T) {
	for _, s := range []string{"", "api", "file:abc", "cli"} {
		if IsSourceID(s) {
			t.Errorf("IsSourceID(%q) = true", s)
		}
	}
}
