// Package watch rebuilds a project snapshot whenever an included file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/starford/snapcode/internal/apperr"
	"github.com/starford/snapcode/internal/snapshot"
)

// DefaultQueueSize bounds the number of pending rebuild requests.
const DefaultQueueSize = 16

// State is the lifecycle state of a Watcher.
type State uint32

const (
	StateIdle State = iota
	StateWatching
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// Trigger names what caused a rebuild.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerChange  Trigger = "change"
	TriggerManual  Trigger = "manual"
)

// Request is one queued rebuild.
type Request struct {
	Trigger Trigger
	Path    string // relative path of the changed file, empty otherwise
}

// Outcome is reported after every rebuild attempt.
type Outcome struct {
	Request
	Started time.Time
	Result  *snapshot.Result
	Err     error
}

// Callback receives rebuild outcomes. It runs on the rebuild worker and must
// not block for long.
type Callback func(Outcome)

// Builder is what the watcher rebuilds.
type Builder interface {
	Root() string
	Policy() *snapshot.Policy
	Build() (*snapshot.Result, error)
}

// Watcher drives rebuilds from file system notifications.
//
// A single event loop goroutine filters notifications and applies the
// cooldown; accepted requests go through a bounded queue to a single worker,
// so at most one rebuild runs at a time and a running rebuild is never
// interrupted.
type Watcher struct {
	builder      Builder
	policy       *snapshot.Policy
	session      *Session
	queue        chan Request
	logger       *slog.Logger
	callback     Callback
	logOutOfRoot bool
	started      atomic.Bool
	state        atomic.Uint32
}

// Option configures a Watcher.
type Option func(*config)

type config struct {
	cooldown     time.Duration
	queueSize    int
	now          func() time.Time
	logger       *slog.Logger
	callback     Callback
	logOutOfRoot bool
}

// WithCooldown sets the minimum interval between event-triggered rebuilds.
func WithCooldown(d time.Duration) Option {
	return func(c *config) { c.cooldown = d }
}

// WithQueueSize bounds the pending rebuild queue.
func WithQueueSize(n int) Option {
	return func(c *config) { c.queueSize = n }
}

// WithClock overrides the session clock.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCallback registers a function called after each rebuild.
func WithCallback(cb Callback) Option {
	return func(c *config) { c.callback = cb }
}

// WithOutOfRootLogging logs notifications for paths outside the project root
// at debug level instead of dropping them silently.
func WithOutOfRootLogging(enabled bool) Option {
	return func(c *config) { c.logOutOfRoot = enabled }
}

// New creates a Watcher for b.
func New(b Builder, opts ...Option) *Watcher {
	cfg := config{cooldown: DefaultCooldown, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queueSize <= 0 {
		cfg.queueSize = 1
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		builder:      b,
		policy:       b.Policy(),
		session:      NewSession(cfg.cooldown, cfg.now),
		queue:        make(chan Request, cfg.queueSize),
		logger:       cfg.logger,
		callback:     cfg.callback,
		logOutOfRoot: cfg.logOutOfRoot,
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Trigger queues a manual rebuild. It bypasses the cooldown and the
// inclusion policy but shares the queue with event-driven rebuilds.
func (w *Watcher) Trigger() error {
	if w.State() == StateStopped {
		return errors.New("watcher: stopped")
	}
	if !w.enqueue(Request{Trigger: TriggerManual}) {
		return apperr.ErrQueueFull
	}
	return nil
}

// Run performs the initial build, then watches the project until ctx is
// cancelled. A failed initial build is returned as an error. Run may only
// be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher: already started")
	}
	defer w.state.Store(uint32(StateStopped))

	root := w.builder.Root()
	started := time.Now()
	res, err := w.builder.Build()
	w.report(Outcome{Request: Request{Trigger: TriggerInitial}, Started: started, Result: res, Err: err})
	if err != nil {
		return fmt.Errorf("watcher: initial build: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addDirsRecursive(fsw, root); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", root, err)
	}

	w.state.Store(uint32(StateWatching))
	w.logger.Info("watcher: started",
		slog.String("root", root),
		slog.Duration("cooldown", w.session.Cooldown()))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.loop(gCtx, fsw)
	})
	g.Go(func() error {
		w.work(gCtx)
		return nil
	})

	err = g.Wait()
	w.logger.Info("watcher: stopped")
	return err
}

// loop consumes notifications until ctx is cancelled.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher: event stream closed")
			}
			w.handle(fsw, ev)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher: error stream closed")
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// work runs queued rebuilds one at a time.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.queue:
			w.rebuild(req)
		}
	}
}

func (w *Watcher) rebuild(req Request) {
	if req.Trigger == TriggerChange {
		w.logger.Info("watcher: change detected", slog.String("path", req.Path))
	} else {
		w.logger.Info("watcher: rebuild requested", slog.String("trigger", string(req.Trigger)))
	}
	started := time.Now()
	res, err := w.builder.Build()
	if err != nil {
		w.logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
	}
	w.report(Outcome{Request: req, Started: started, Result: res, Err: err})
}

func (w *Watcher) report(o Outcome) {
	if w.callback != nil {
		w.callback(o)
	}
}

// handle filters a single notification and queues a rebuild when it passes.
func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	rel, ok := w.relative(ev.Name)
	if !ok {
		if w.logOutOfRoot {
			w.logger.Debug("watcher: event outside root", slog.String("path", ev.Name))
		}
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 && fsw != nil {
			w.watchNewDir(fsw, ev.Name, rel)
		}
		return
	}

	if !w.policy.Include(rel) {
		return
	}
	w.accept(rel)
}

// accept applies the cooldown to a change of an included file.
func (w *Watcher) accept(rel string) {
	if !w.session.Allow() {
		w.logger.Debug("watcher: debounced", slog.String("path", rel))
		return
	}
	w.enqueue(Request{Trigger: TriggerChange, Path: rel})
}

// enqueue never blocks. A full queue already holds a rebuild that will pick
// up the newer state, so the request is dropped.
func (w *Watcher) enqueue(req Request) bool {
	select {
	case w.queue <- req:
		return true
	default:
		w.logger.Debug("watcher: queue full, request dropped",
			slog.String("trigger", string(req.Trigger)),
			slog.String("path", req.Path))
		return false
	}
}

// relative resolves an event path against the project root.
func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.builder.Root(), name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// watchNewDir starts watching a directory created at runtime. Files written
// into it before the watch was added would otherwise be missed, so an
// included file inside counts as a change.
func (w *Watcher) watchNewDir(fsw *fsnotify.Watcher, abs, rel string) {
	if w.policy.Exclusions().MatchesAny(rel) {
		return
	}
	if err := w.addDirsRecursive(fsw, abs); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", rel))

	found := ""
	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != abs && w.policy.PruneDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if r, ok := w.relative(p); ok && w.policy.Include(r) {
			found = r
			return filepath.SkipAll
		}
		return nil
	})
	if found != "" {
		w.accept(found)
	}
}

// addDirsRecursive adds root and all its non-excluded subdirectories to fsw.
func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.policy.PruneDir(d.Name()) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}
