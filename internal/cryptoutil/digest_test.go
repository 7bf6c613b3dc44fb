package cryptoutil

import (
	"strings"
	"testing"
)

func TestSHA256Hex_KnownVector(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex([]byte{}); got != want {
		t.Fatalf("SHA256Hex(empty) = %q, want %q", got, want)
	}
}

func TestHashEqual(t *testing.T) {
	a := SHA256Hex([]byte("a"))
	if !HashEqual(a, a) {
		t.Fatal("same digest should be equal")
	}
	if HashEqual(a, SHA256Hex([]byte("b"))) {
		t.Fatal("different digests should not be equal")
	}
	if HashEqual(a, a[:10]) {
		t.Fatal("different lengths should not be equal")
	}
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("<html></html>"))
	if !strings.HasPrefix(tag, `"`) || !strings.HasSuffix(tag, `"`) || len(tag) != 34 {
		t.Fatalf("ETag = %q", tag)
	}
	if ETag([]byte("<html></html>")) != tag {
		t.Fatal("ETag not deterministic")
	}
	if ETag([]byte("<html> </html>")) == tag {
		t.Fatal("different bodies share an ETag")
	}
}

func TestMatchETag(t *testing.T) {
	tag := ETag([]byte("body"))
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"empty", "", false},
		{"exact", tag, true},
		{"star", "*", true},
		{"weak", "W/" + tag, true},
		{"list", `"abc", ` + tag, true},
		{"other", `"abc"`, false},
		{"unquoted", strings.Trim(tag, `"`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchETag(tt.header, tag); got != tt.want {
				t.Fatalf("MatchETag(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
