package snapshot

import (
	"path"
	"strings"

	"github.com/starford/snapcode/internal/storage"
)

// Policy decides which files enter a snapshot. It is safe for concurrent use;
// nothing in it changes after construction.
type Policy struct {
	store      storage.Provider
	exclusions ExclusionSet
	skip       map[string]struct{}
}

// NewPolicy returns a policy over store. skip lists relative paths that are
// never included regardless of the other rules (the snapshot artifact itself).
func NewPolicy(store storage.Provider, exclusions ExclusionSet, skip ...string) *Policy {
	m := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return &Policy{store: store, exclusions: exclusions, skip: m}
}

// Exclusions returns the policy's exclusion set.
func (p *Policy) Exclusions() ExclusionSet {
	return p.exclusions
}

// PruneDir reports whether a directory with the given name must not be
// descended into.
func (p *Policy) PruneDir(name string) bool {
	return p.exclusions.Contains(name)
}

// Excluded applies the name-based rules to a slash-separated relative path:
// an excluded segment, a hidden base name, or an explicitly skipped path.
// It never touches the file system.
func (p *Policy) Excluded(rel string) bool {
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return true
	}
	if _, ok := p.skip[rel]; ok {
		return true
	}
	if p.exclusions.MatchesAny(rel) {
		return true
	}
	return strings.HasPrefix(path.Base(rel), ".")
}

// Include reports whether the file at rel belongs in a snapshot.
func (p *Policy) Include(rel string) bool {
	if p.Excluded(rel) {
		return false
	}
	return IsText(p.store, rel)
}
