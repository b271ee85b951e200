// Package snapshot implements the engine's sole public operation: an
// idempotent per-repository checkpoint that records the working tree onto
// a side branch anchored at HEAD, without ever touching HEAD, the active
// branch, the index, or the working tree itself.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/tkellogg/dura/internal/config"
	"github.com/tkellogg/dura/internal/gitrepo"
)

// Message is the fixed commit message every snapshot commit carries.
const Message = "dura auto-backup"

// EnvForcedTimestamp names the environment variable that, when set,
// overrides "now" as the author/committer timestamp on new snapshot
// commits. Accepts either RFC-3339 (ISO-8601) or RFC-1123Z (RFC-2822
// style) timestamps.
const EnvForcedTimestamp = "DURA_COMMIT_TIMESTAMP"

// Result describes a snapshot commit that was actually written.
type Result struct {
	DuraBranch string
	NewCommit  plumbing.Hash
	BaseHead   plumbing.Hash
}

// ErrIdentityResolutionFailed wraps a malformed EnvForcedTimestamp value.
var ErrIdentityResolutionFailed = errors.New("snapshot: identity resolution failed")

// Capture runs the full capture algorithm against repoPath and returns
// nil, nil when there is nothing to record. id supplies the identity
// overrides to resolve against; extraIgnore supplies dura's own
// include/exclude-derived ignore patterns (relative to repoPath) to
// exclude from the snapshot tree, in addition to the repository's own
// .gitignore files.
func Capture(repoPath string, id config.Identity, extraIgnore []string) (*Result, error) {
	repo, err := gitrepo.Open(repoPath)
	if err != nil {
		return nil, err // already wraps gitrepo.ErrRepoUnavailable
	}

	head, err := repo.Head()
	if err != nil {
		return nil, err
	}

	clean, err := repo.WorkingTreeClean()
	if err != nil {
		return nil, err
	}
	if clean {
		return nil, nil
	}

	branchName := "dura/" + head.String()

	parent, branchExists, err := resolveParent(repo, branchName, head)
	if err != nil {
		return nil, err
	}

	treeHash, err := repo.BuildTree(extraIgnore)
	if err != nil {
		return nil, err
	}

	if parentTreeHash, ok, err := parentTree(repo, parent); err != nil {
		return nil, err
	} else if ok && parentTreeHash == treeHash {
		return nil, nil
	}

	when, err := resolveTimestamp()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityResolutionFailed, err)
	}
	name, email := repo.ResolveIdentity(id)
	sig := gitrepo.Signature(name, email, when)

	if !branchExists {
		if err := repo.SetBranch(branchName, head); err != nil {
			return nil, err
		}
	}

	commitHash, err := repo.WriteCommit(treeHash, []plumbing.Hash{parent}, Message, sig, sig)
	if err != nil {
		return nil, err
	}
	if err := repo.SetBranch(branchName, commitHash); err != nil {
		return nil, err
	}

	return &Result{DuraBranch: branchName, NewCommit: commitHash, BaseHead: head}, nil
}

// resolveParent implements spec step 5: decide the parent commit for the
// new snapshot and whether the branch ref already names the right thing.
func resolveParent(repo *gitrepo.Repo, branchName string, head plumbing.Hash) (parent plumbing.Hash, branchExists bool, err error) {
	tip, ok, err := repo.ResolveBranch(branchName)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if !ok {
		return head, false, nil
	}
	if tip == head {
		// Pre-created but never appended to: treat as non-existent.
		if err := repo.DeleteBranch(branchName); err != nil {
			return plumbing.ZeroHash, false, err
		}
		return head, false, nil
	}
	return tip, true, nil
}

// parentTree resolves the tree hash of the commit a new snapshot would be
// parented on, used for the no-op guard in step 7. parent may equal head
// itself (first snapshot on this anchor), which is always a real commit.
func parentTree(repo *gitrepo.Repo, parent plumbing.Hash) (plumbing.Hash, bool, error) {
	c, err := repo.CommitObject(parent)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	return c.TreeHash, true, nil
}

func resolveTimestamp() (time.Time, error) {
	raw := os.Getenv(EnvForcedTimestamp)
	if raw == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s: not a valid ISO-8601 or RFC-2822 timestamp: %q", EnvForcedTimestamp, raw)
}
