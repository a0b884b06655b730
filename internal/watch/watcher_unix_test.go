//go:build linux || darwin

package watch

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestHandle_FIFOCreateIgnored(t *testing.T) {
	root, b := watcherTestEnv(t)
	w := New(b, WithLogger(testLogger()))

	pipe := filepath.Join(root, "pipe")
	if err := syscall.Mkfifo(pipe, 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.handle(nil, fsnotify.Event{Name: pipe, Op: fsnotify.Create})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handle blocked on a named pipe")
	}
	if len(w.queue) != 0 {
		t.Errorf("queue len = %d, want 0", len(w.queue))
	}
}

func TestRun_KeepsWatchingAfterFIFOCreated(t *testing.T) {
	root, b := watcherTestEnv(t)
	rec := &recorder{}
	w := New(b, WithLogger(testLogger()), WithCallback(rec.record), WithCooldown(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return w.State() == StateWatching
	}, "watcher never reached watching state")

	if err := syscall.Mkfifo(filepath.Join(root, "pipe"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count(TriggerChange) >= 1
	}, "no rebuild after a named pipe appeared")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
