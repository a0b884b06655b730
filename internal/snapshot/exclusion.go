// Package snapshot selects a project's text files and serializes them into a
// single concatenated snapshot document.
package snapshot

import (
	"slices"
	"strings"
)

// defaultTokens are the directory and file names never included in a snapshot.
var defaultTokens = []string{
	".git",
	".idea",
	".mypy_cache",
	".ruff_cache",
	".venv",
	"venv",
	".pytest_cache",
	"__pycache__",
	".coverage",
	".DS_Store",
	".vscode",
	".circleci",
	".github",
	"target",
}

// ExclusionSet is an immutable set of whole path-segment names.
// The zero value excludes nothing.
type ExclusionSet struct {
	tokens map[string]struct{}
}

// DefaultExclusions returns the built-in exclusion set.
func DefaultExclusions() ExclusionSet {
	return NewExclusionSet()
}

// NewExclusionSet returns the built-in tokens merged with extra.
// Blank entries and entries containing a path separator are ignored, since
// matching is done one segment at a time.
func NewExclusionSet(extra ...string) ExclusionSet {
	m := make(map[string]struct{}, len(defaultTokens)+len(extra))
	for _, t := range defaultTokens {
		m[t] = struct{}{}
	}
	for _, t := range extra {
		t = strings.TrimSpace(t)
		if t == "" || strings.ContainsAny(t, `/\`) {
			continue
		}
		m[t] = struct{}{}
	}
	return ExclusionSet{tokens: m}
}

// Contains reports whether name exactly equals an excluded token.
func (s ExclusionSet) Contains(name string) bool {
	_, ok := s.tokens[name]
	return ok
}

// MatchesAny reports whether any segment of a slash-separated relative path
// is excluded.
func (s ExclusionSet) MatchesAny(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if s.Contains(seg) {
			return true
		}
	}
	return false
}

// Tokens returns the members in sorted order.
func (s ExclusionSet) Tokens() []string {
	out := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
