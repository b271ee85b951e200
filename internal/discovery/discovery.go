// Package discovery walks the configured watch set and yields the
// absolute paths of repositories found beneath it, honoring per-root
// include/exclude patterns and a maximum recursion depth, backed by a
// jittered directory-listing cache that makes repeated polls of a large
// tree cheap.
package discovery

import (
	"path/filepath"
	"strings"

	"github.com/tkellogg/dura/internal/config"
	"github.com/tkellogg/dura/internal/gitrepo"
)

// WarnFunc receives a directory whose listing failed; the default is a
// no-op, callers typically wire this to the logging package.
type WarnFunc func(dir string, err error)

// frame is one level of the iterator's explicit stack: a root's spec
// plus a cursor into its (possibly cached) list of not-yet-visited child
// names at this depth.
type frame struct {
	root   string // watch-set root this frame descends from
	spec   config.RepoSpec
	dir    string // directory this frame is listing children of
	depth  int    // recursion depth of dir below root (root itself is depth 0)
	names  []string
	cursor int
}

// Iterator yields discovered repository paths one at a time over a
// single pass through the watch set. It is single-shot: once exhausted,
// a new Iterator must be constructed for the next poll tick.
type Iterator struct {
	entries []config.WatchEntry
	nextIdx int
	stack   []*frame
	cache   *DirCache
	warn    WarnFunc
	pending string // a watch root that is itself a repository, queued for the next Next() call
}

// NewIterator builds an iterator over entries (already sorted by
// Config.Entries). cache may be nil to disable directory-listing
// caching entirely.
func NewIterator(entries []config.WatchEntry, cache *DirCache, warn WarnFunc) *Iterator {
	return &Iterator{entries: entries, cache: cache, warn: warn}
}

// Next advances the iterator and returns the next discovered repository
// path, or ok=false once every root has been fully explored.
func (it *Iterator) Next() (path string, ok bool) {
	for {
		if it.pending != "" {
			path := it.pending
			it.pending = ""
			return path, true
		}

		if len(it.stack) == 0 {
			if !it.pushNextRoot() {
				return "", false
			}
			continue
		}

		top := it.stack[len(it.stack)-1]
		if top.names == nil && top.cursor == 0 {
			top.names = readDirCached(it.cache, top.dir, it.warn)
		}
		if top.cursor >= len(top.names) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		name := top.names[top.cursor]
		top.cursor++
		child := filepath.Join(top.dir, name)

		if !admissible(top.root, top.spec, child, top.depth) {
			continue
		}

		if gitrepo.IsRepo(child) {
			return child, true
		}

		it.stack = append(it.stack, &frame{
			root:  top.root,
			spec:  top.spec,
			dir:   child,
			depth: top.depth + 1,
		})
	}
}

// pushNextRoot advances past watch-set entries until it finds one whose
// root it can push a traversal frame for, setting pending when the root
// itself is a repository (yielded directly, its subtree never explored).
func (it *Iterator) pushNextRoot() bool {
	for it.nextIdx < len(it.entries) {
		e := it.entries[it.nextIdx]
		it.nextIdx++

		if gitrepo.IsRepo(e.Root) {
			it.pending = e.Root
			return true
		}
		it.stack = append(it.stack, &frame{root: e.Root, spec: e.Spec, dir: e.Root, depth: 0})
		return true
	}
	return false
}

// admissible implements spec §4.4's four-part test for whether child is
// a candidate worth testing as a repository, given it sits at depth
// levels below root (root's direct children are depth 0).
func admissible(root string, spec config.RepoSpec, child string, depth int) bool {
	if depth >= spec.MaxDepth {
		return false
	}
	if !isPrefixDescendant(root, child) {
		return false
	}

	excluded := false
	for _, e := range spec.Exclude {
		if isPrefixDescendant(filepath.Join(root, e), child) {
			excluded = true
			break
		}
	}
	if !excluded {
		return true
	}

	for _, inc := range spec.Include {
		includedRoot := filepath.Join(root, inc)
		if isPrefixDescendant(child, includedRoot) {
			return true
		}
	}
	return false
}

// isPrefixDescendant reports whether child is base itself or lies
// beneath it, compared component-wise rather than by raw string prefix
// (so "/a/bc" is not considered a descendant of "/a/b").
func isPrefixDescendant(base, child string) bool {
	base = filepath.Clean(base)
	child = filepath.Clean(child)
	if base == child {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}
