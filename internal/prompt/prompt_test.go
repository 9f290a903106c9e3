package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.txt"), 8000)

	if got := l.Load(); got != DefaultContext {
		t.Errorf("Load() = %q, want default context", got)
	}
}

func TestLoader_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.txt")
	if err := os.WriteFile(path, []byte("You are the mail assistant."), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path, 8000)
	if got := l.Load(); got != "You are the mail assistant." {
		t.Errorf("Load() = %q", got)
	}
}

func TestLoader_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 100)), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path, 10)
	if got := l.Load(); len(got) != 10 {
		t.Errorf("Load() returned %d chars, want 10", len(got))
	}
}
