package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTempWorkspaceCleanup(t *testing.T) {
	ws, err := New("", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}
	ws.Cleanup()
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("temp workspace survived cleanup: %v", err)
	}
}

func TestRetainedTempWorkspaceSurvives(t *testing.T) {
	ws, err := New("", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer os.RemoveAll(ws.Dir())

	ws.Cleanup()
	if _, err := os.Stat(ws.Dir()); err != nil {
		t.Errorf("retained workspace removed: %v", err)
	}
}

func TestCallerDirNeverRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	ws, err := New(dir, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ws.Cleanup()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("caller-provided dir removed: %v", err)
	}
}

func TestFilePathDeterministic(t *testing.T) {
	ws, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := ws.FilePath("https://example.com/page", ".png")
	b := ws.FilePath("https://example.com/page", "png")
	if a != b {
		t.Errorf("extension normalization differs: %q vs %q", a, b)
	}
	c := ws.FilePath("https://example.com/other", ".png")
	if a == c {
		t.Error("different locators mapped to the same file")
	}
	if !strings.HasSuffix(a, ".png") {
		t.Errorf("missing extension: %q", a)
	}
}

func TestSlugPath(t *testing.T) {
	ws, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := ws.SlugPath("moegirl_特别周", ".pdf")
	if filepath.Dir(got) != ws.Dir() {
		t.Errorf("path outside workspace: %q", got)
	}
	if filepath.Base(got) != "moegirl_特别周.pdf" {
		t.Errorf("base = %q", filepath.Base(got))
	}
	if got != ws.SlugPath("moegirl_特别周", "pdf") {
		t.Error("extension normalization differs")
	}
}
