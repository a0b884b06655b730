package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/snapcode/internal/checksum"
	"github.com/starford/snapcode/internal/storage"
)

// ErrNotUTF8 is recorded for files whose content is not valid UTF-8.
var ErrNotUTF8 = errors.New("content is not valid UTF-8")

// irregular file types are never opened: reading a FIFO would block the walk.
const irregular = fs.ModeNamedPipe | fs.ModeSocket | fs.ModeDevice | fs.ModeCharDevice | fs.ModeIrregular

// FileError describes a file that passed the policy but could not be added.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result summarises one build.
type Result struct {
	Output   string
	Files    int
	Paths    []string
	Bytes    int64
	Checksum string
	Duration time.Duration
	Errors   []FileError
}

// Builder writes snapshots of a single project root.
type Builder struct {
	store      storage.Provider
	output     string
	exclusions ExclusionSet
	policy     *Policy
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithOutput overrides the artifact path. A relative path is resolved
// against the project root.
func WithOutput(p string) Option {
	return func(b *Builder) {
		b.output = p
	}
}

// WithExclusions replaces the default exclusion set.
func WithExclusions(s ExclusionSet) Option {
	return func(b *Builder) {
		b.exclusions = s
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// New creates a Builder over store.
func New(store storage.Provider, opts ...Option) *Builder {
	b := &Builder{
		store:      store,
		exclusions: DefaultExclusions(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b.output = ResolveOutput(store.Root(), b.output)

	// Neither the configured artifact nor one left behind under the default
	// name is ever part of a snapshot.
	var skip []string
	for _, p := range []string{b.output, ResolveOutput(store.Root(), "")} {
		if rel, ok := relativeTo(store.Root(), p); ok {
			skip = append(skip, rel)
		}
	}
	b.policy = NewPolicy(store, b.exclusions, skip...)
	return b
}

// ResolveOutput returns the absolute artifact path for root. An empty output
// yields "<root name>_snapshot.txt" inside root.
func ResolveOutput(root, output string) string {
	if output == "" {
		output = filepath.Base(root) + "_snapshot.txt"
	}
	if filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	return filepath.Join(root, output)
}

// relativeTo returns target as a slash-separated path relative to root when
// target lies inside root.
func relativeTo(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Output returns the absolute artifact path.
func (b *Builder) Output() string {
	return b.output
}

// Root returns the absolute project root.
func (b *Builder) Root() string {
	return b.store.Root()
}

// Policy returns the inclusion policy shared with the watcher.
func (b *Builder) Policy() *Policy {
	return b.policy
}

// Build walks the project and rewrites the artifact. Per-file failures are
// logged and collected in the result; only an unreadable root or a failed
// artifact write is returned as an error.
func (b *Builder) Build() (*Result, error) {
	start := time.Now()
	res := &Result{Output: b.output}

	var buf bytes.Buffer
	err := b.walk("", func(rel string) {
		if !b.policy.Include(rel) {
			return
		}
		data, err := b.store.Read(rel)
		if err == nil && !utf8.Valid(data) {
			err = ErrNotUTF8
		}
		if err != nil {
			b.logger.Warn("builder: skip file", slog.String("path", rel), slog.String("error", err.Error()))
			res.Errors = append(res.Errors, FileError{Path: rel, Err: err})
			return
		}
		writeBlock(&buf, rel, data)
		res.Files++
		res.Paths = append(res.Paths, rel)
		b.logger.Debug("builder: added", slog.String("path", rel))
	})
	if err != nil {
		return nil, err
	}

	if err := storage.WriteFile(b.output, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("builder: write snapshot: %w", err)
	}

	res.Bytes = int64(buf.Len())
	res.Checksum = checksum.Sum(buf.Bytes())
	res.Duration = time.Since(start)

	b.logger.Info("builder: snapshot written",
		slog.String("output", b.output),
		slog.Int("files", res.Files),
		slog.Int("skipped", len(res.Errors)),
		slog.Int64("bytes", res.Bytes),
		slog.String("checksum", checksum.Short(res.Checksum)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// Files lists the relative paths a build would include, without reading
// full contents or writing the artifact.
func (b *Builder) Files() ([]string, error) {
	var out []string
	err := b.walk("", func(rel string) {
		if b.policy.Include(rel) {
			out = append(out, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk visits every candidate file below dir depth-first: the files of a
// directory in name order, then its subdirectories in name order. Excluded
// directories are pruned before they are read. Only a failure to list the
// root is returned.
func (b *Builder) walk(dir string, visit func(rel string)) error {
	entries, err := b.store.ReadDir(dir)
	if err != nil {
		if dir == "" {
			return fmt.Errorf("builder: %w", err)
		}
		b.logger.Warn("builder: skip directory", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}

	var subdirs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if !b.policy.PruneDir(name) {
				subdirs = append(subdirs, name)
			}
			continue
		}
		if e.Type()&irregular != 0 {
			continue
		}
		visit(path.Join(dir, name))
	}

	for _, name := range subdirs {
		if err := b.walk(path.Join(dir, name), visit); err != nil {
			return err
		}
	}
	return nil
}
