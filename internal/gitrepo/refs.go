package gitrepo

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// ResolveBranch looks up refs/heads/name, returning ok=false (not an
// error) when the branch does not exist — callers use this to decide
// between "create the first snapshot branch" and "extend it".
func (r *Repo) ResolveBranch(name string) (hash plumbing.Hash, ok bool, err error) {
	return r.resolveRef(plumbing.NewBranchReferenceName(name))
}

// ResolveTag looks up refs/tags/name the same way ResolveBranch resolves
// a branch.
func (r *Repo) ResolveTag(name string) (hash plumbing.Hash, ok bool, err error) {
	return r.resolveRef(plumbing.NewTagReferenceName(name))
}

func (r *Repo) resolveRef(name plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	ref, err := r.repo.Storer.Reference(name)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("%w: resolving %s: %v", ErrRepoUnavailable, name, err)
	}
	return ref.Hash(), true, nil
}

// SetBranch points refs/heads/name at hash, creating the ref if absent and
// fast-forwarding (or replacing) it otherwise. dura never uses git's
// normal update-ref safety checks here: these are dura's own refs, so a
// non-fast-forward move (e.g. after consolidation trims history) is
// expected, not an error.
func (r *Repo) SetBranch(name string, hash plumbing.Hash) error {
	return r.setRef(plumbing.NewBranchReferenceName(name), hash)
}

// SetTag points refs/tags/name at hash the same way SetBranch moves a
// branch ref.
func (r *Repo) SetTag(name string, hash plumbing.Hash) error {
	return r.setRef(plumbing.NewTagReferenceName(name), hash)
}

func (r *Repo) setRef(name plumbing.ReferenceName, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(name, hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("%w: setting %s: %v", ErrObjectWrite, name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/name, used when consolidation folds a
// hash-anchored branch's history into a cold tag and retires the branch.
func (r *Repo) DeleteBranch(name string) error {
	return r.deleteRef(plumbing.NewBranchReferenceName(name))
}

func (r *Repo) deleteRef(name plumbing.ReferenceName) error {
	if err := r.repo.Storer.RemoveReference(name); err != nil {
		return fmt.Errorf("%w: removing %s: %v", ErrObjectWrite, name, err)
	}
	return nil
}

// ListBranches returns the short names (without refs/heads/) of every
// local branch whose name starts with prefix.
func (r *Repo) ListBranches(prefix string) ([]string, error) {
	iter, err := r.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("%w: iterating refs: %v", ErrRepoUnavailable, err)
	}
	defer iter.Close()

	var names []string
	for {
		ref, err := iter.Next()
		if err != nil {
			break
		}
		if !ref.Name().IsBranch() {
			continue
		}
		short := ref.Name().Short()
		if strings.HasPrefix(short, prefix) {
			names = append(names, short)
		}
	}
	return names, nil
}

// ListTags returns the short names of every tag whose name starts with
// prefix, the set consolidation reads to find the next available
// dura/cold/<n> slot.
func (r *Repo) ListTags(prefix string) ([]string, error) {
	iter, err := r.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("%w: iterating refs: %v", ErrRepoUnavailable, err)
	}
	defer iter.Close()

	var names []string
	for {
		ref, err := iter.Next()
		if err != nil {
			break
		}
		if !ref.Name().IsTag() {
			continue
		}
		short := ref.Name().Short()
		if strings.HasPrefix(short, prefix) {
			names = append(names, short)
		}
	}
	return names, nil
}
