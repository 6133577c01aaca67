package fileid

import (
	"strings"
	"testing"
)

func TestFromPath(t *testing.T) {
	id1 := FromPath("/inbox/Jane Doe CV.pdf")
	id2 := FromPath("/inbox/Jane Doe CV.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, "jane-doe-cv-") {
		t.Errorf("ID should start with the file slug: %q", id1)
	}
	if len(id1) != len("jane-doe-cv-")+2*hashBytes {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestFromPath_differentPaths(t *testing.T) {
	id1 := FromPath("/a/cv.pdf")
	id2 := FromPath("/b/cv.pdf")
	if id1 == id2 {
		t.Errorf("different paths should give different IDs: %q", id1)
	}
}

func TestFromPath_normalized(t *testing.T) {
	id1 := FromPath("/foo/bar.txt")
	id2 := FromPath("/foo/./bar.txt")
	id3 := FromPath("/foo/baz/../bar.txt")
	if id1 != id2 || id1 != id3 {
		t.Errorf("cleaned paths should match: %q %q %q", id1, id2, id3)
	}
}

func TestFromPath_noSlug(t *testing.T) {
	id := FromPath("/inbox/履歴書.pdf")
	if !strings.HasPrefix(id, "resume-") {
		t.Errorf("non-ASCII name should fall back to resume- prefix: %q", id)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Jane_Doe (2024)", "jane-doe-2024"},
		{"--cv--", "cv"},
		{"", ""},
		{strings.Repeat("a", 60), strings.Repeat("a", maxSlug)},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
