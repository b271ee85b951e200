package gitrepo

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// WriteCommit writes a new commit object with the given tree and parents
// and returns its hash. It never updates HEAD, a branch ref, or the index;
// callers move a dura/* ref to point at the result separately.
func (r *Repo) WriteCommit(treeHash plumbing.Hash, parents []plumbing.Hash, message string, author, committer object.Signature) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       author,
		Committer:    committer,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: encoding commit: %v", ErrObjectWrite, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: storing commit: %v", ErrObjectWrite, err)
	}
	return hash, nil
}

// CommitObject resolves hash to its parsed commit, used by the
// consolidator to walk parents and by the change guard to read commit
// time.
func (r *Repo) CommitObject(hash plumbing.Hash) (*object.Commit, error) {
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: reading commit %s: %v", ErrRepoUnavailable, hash, err)
	}
	return c, nil
}

// CommitTime returns the committer timestamp of hash, the value the
// change guard compares against file modification times.
func (r *Repo) CommitTime(hash plumbing.Hash) (time.Time, error) {
	c, err := r.CommitObject(hash)
	if err != nil {
		return time.Time{}, err
	}
	return c.Committer.When, nil
}

// TreeObject resolves hash to its parsed tree.
func (r *Repo) TreeObject(hash plumbing.Hash) (*object.Tree, error) {
	t, err := r.repo.TreeObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: reading tree %s: %v", ErrRepoUnavailable, hash, err)
	}
	return t, nil
}

// TreesEqual reports whether two commits point at the same tree hash.
func (r *Repo) TreesEqual(a, b plumbing.Hash) (bool, error) {
	ca, err := r.CommitObject(a)
	if err != nil {
		return false, err
	}
	cb, err := r.CommitObject(b)
	if err != nil {
		return false, err
	}
	return ca.TreeHash == cb.TreeHash, nil
}
