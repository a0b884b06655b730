//go:build linux || darwin

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// withTimeout fails the test when fn does not return in time.
func withTimeout(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("call blocked")
	}
}

func TestRead_FIFORejected(t *testing.T) {
	s := tempProject(t)
	if err := syscall.Mkfifo(filepath.Join(s.root, "pipe"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	if err := os.Symlink(filepath.Join(s.root, "pipe"), filepath.Join(s.root, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	for _, p := range []string{"pipe", "link"} {
		withTimeout(t, 2*time.Second, func() {
			if _, err := s.ReadPrefix(p, 16); !errors.Is(err, ErrNotRegular) {
				t.Errorf("ReadPrefix(%s) err = %v, want ErrNotRegular", p, err)
			}
			if _, err := s.Read(p); !errors.Is(err, ErrNotRegular) {
				t.Errorf("Read(%s) err = %v, want ErrNotRegular", p, err)
			}
		})
	}
}

func TestRead_SymlinkToRegularFile(t *testing.T) {
	s := tempProject(t)
	if err := s.Write("real.txt", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(s.root, "real.txt"), filepath.Join(s.root, "alias.txt")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("alias.txt")
	if err != nil || string(got) != "data" {
		t.Errorf("Read = %q, %v", got, err)
	}
}

func TestSafePath_FilesystemRoot(t *testing.T) {
	s := &FS{root: "/"}
	got, err := s.safePath("etc/hosts")
	if err != nil {
		t.Fatalf("safePath: %v", err)
	}
	if got != "/etc/hosts" {
		t.Errorf("path = %q", got)
	}
}
