// Package testutil provides shared test helpers for setting up project trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/snapcode/internal/storage"
)

// WriteTree creates files under root. Keys are slash-separated relative paths.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestProject creates a temporary project directory holding files and
// returns its path with a storage.Provider rooted at it.
func TestProject(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, files)
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// Unreadable strips all permissions from the file at p for the duration of
// the test. It skips the test when running as root, where permissions are
// not enforced.
func Unreadable(t *testing.T, p string) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks are not enforced for root")
	}
	if err := os.Chmod(p, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(p, 0o644) })
}
