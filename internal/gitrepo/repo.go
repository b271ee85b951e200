// Package gitrepo wraps go-git so the rest of dura can treat the
// content-addressed object store as the black box spec.md describes: open
// a repository, read its status and refs, and write new blobs, trees,
// commits and dura/* refs without ever touching HEAD, the index, or the
// working tree's tracked state.
package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrRepoUnavailable is returned when path does not hold a valid git
// repository, or HEAD cannot be resolved to a commit.
var ErrRepoUnavailable = errors.New("gitrepo: repository unavailable")

// ErrObjectWrite wraps any failure while writing a blob, tree, commit or
// ref to the object store.
var ErrObjectWrite = errors.New("gitrepo: object write failed")

// Repo is a thin handle over an opened repository.
type Repo struct {
	Path string
	repo *git.Repository
}

// Open opens the repository rooted at path (or any of its ancestors, the
// way `git` itself resolves a work-tree root).
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s: %v", ErrRepoUnavailable, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrRepoUnavailable, path, err)
	}
	return &Repo{Path: path, repo: r}, nil
}

// IsRepo reports whether path holds a repository, without surfacing the
// reason it does not — used by Repo Discovery's admissibility test, which
// only cares about yes/no.
func IsRepo(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: false})
	return err == nil
}

// Head resolves HEAD to a commit hash. Returns ErrRepoUnavailable if HEAD
// is unborn (no commits yet) or otherwise unresolvable.
func (r *Repo) Head() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resolving HEAD: %v", ErrRepoUnavailable, err)
	}
	return ref.Hash(), nil
}

// WorkingTreeClean reports whether the working tree has no modified,
// untracked, or deleted entries relative to the index and HEAD (spec
// §4.1 step 3). This is a read-only status computation; go-git's
// Worktree.Status never mutates the index or HEAD.
func (r *Repo) WorkingTreeClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("%w: opening worktree: %v", ErrRepoUnavailable, err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("%w: computing status: %v", ErrRepoUnavailable, err)
	}
	return status.IsClean(), nil
}

// underlying returns the wrapped go-git handle.
func (r *Repo) underlying() *git.Repository {
	return r.repo
}
