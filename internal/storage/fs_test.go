package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("package main\n")
	if err := s.Write("main.go", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("main.go")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempProject(t)
	if err := s.Write("a/b/c.txt", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadDirSorted(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("b.txt", []byte("b"))
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("c/d.txt", []byte("d"))

	entries, err := s.ReadDir("")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a.txt", "b.txt", "c"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !entries[2].IsDir() {
		t.Error("c should be a directory")
	}
}

func TestReadPrefix(t *testing.T) {
	s := tempProject(t)
	long := bytes.Repeat([]byte("x"), 4096)
	_ = s.Write("long.txt", long)
	_ = s.Write("short.txt", []byte("hi"))

	got, err := s.ReadPrefix("long.txt", 1024)
	if err != nil {
		t.Fatalf("ReadPrefix: %v", err)
	}
	if len(got) != 1024 {
		t.Errorf("len = %d, want 1024", len(got))
	}

	got, err = s.ReadPrefix("short.txt", 1024)
	if err != nil {
		t.Fatalf("ReadPrefix short: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("short prefix = %q", got)
	}

	got, err = s.ReadPrefix("empty.txt", 1024)
	if err == nil {
		t.Errorf("expected error for missing file, got %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("atomic.txt", []byte("first content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, TempPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteFile_OutsideRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "snap.txt")
	if err := WriteFile(target, []byte("snap")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "snap" {
		t.Errorf("content = %q", got)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/snapcode-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "snapcode-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestSafePath_SiblingPrefixRejected(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "proj")
	if err := os.MkdirAll(filepath.Join(parent, "proj-other"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.safePath("../proj-other/x"); err == nil {
		t.Error("sibling directory sharing the root prefix must be rejected")
	}
	if _, err := s.safePath("sub/../file.txt"); err != nil {
		t.Errorf("in-root path rejected: %v", err)
	}
}
