package utils

import (
	"strings"
	"testing"
)

func TestRandomReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref := randomReference()
		if len(ref) != referenceLength {
			t.Fatalf("expected length %d, got %q", referenceLength, ref)
		}
		for _, r := range ref {
			if !strings.ContainsRune(letterBytes, r) {
				t.Fatalf("unexpected character %q in %q", r, ref)
			}
		}
		seen[ref] = true
	}
	if len(seen) < 190 {
		t.Fatalf("too many repeated references: %d unique of 200", len(seen))
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		if l := NewLogger(env); l == nil {
			t.Fatalf("nil logger for %s", env)
		}
	}
}
