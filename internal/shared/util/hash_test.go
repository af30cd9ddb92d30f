package util

import (
	"strings"
	"testing"
)

func TestHashKey(t *testing.T) {
	id := "opt-1234567890"
	got := HashKey(id)
	if got != HashKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestHashPrefix(t *testing.T) {
	full := HashKey("opt-1234567890")
	if got := HashPrefix("opt-1234567890", 24); got != full[:24] {
		t.Fatalf("HashPrefix = %q, want %q", got, full[:24])
	}
	if got := HashPrefix("opt-1234567890", 0); got != full {
		t.Fatalf("zero length should return the full digest, got %q", got)
	}
	if got := HashPrefix("opt-1234567890", 100); got != full {
		t.Fatalf("oversized length should return the full digest, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Profile.pdf", want: "Profile.pdf"},
		{in: " dir/sub\\Profile.pdf ", want: "dir_sub_Profile.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "Profile\x00.pdf", want: "Profile.pdf"},
		{in: strings.Repeat("a", 200) + ".pdf", want: strings.Repeat("a", MaxFileNameLen-4) + ".pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
