// Package consolidate collapses the fan of per-anchor snapshot branches
// into a small number of octopus merge commits, tagged so the branch
// namespace stops growing linearly with the number of distinct HEADs a
// user has visited.
package consolidate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/tkellogg/dura/internal/gitrepo"
)

// MergeMessage is the fixed message every consolidation merge commit
// carries.
const MergeMessage = "dura compacted commit"

// maxTreeDepth bounds the Tree strategy's recursive folding (spec §4.2
// step 10): 2^16 original branches at num_parents=2, more at wider fan-out.
const maxTreeDepth = 16

// snapshotBranchPrefix identifies branches this package is allowed to
// touch: exactly two path segments, "dura" and a single hex anchor.
const snapshotBranchPrefix = "dura/"

var (
	// ErrBranchEnumerationFailed wraps a failure listing or resolving
	// local dura/* branches.
	ErrBranchEnumerationFailed = errors.New("consolidate: branch enumeration failed")
	// ErrMergeCommitFailed wraps a failure building or writing an octopus
	// merge commit.
	ErrMergeCommitFailed = errors.New("consolidate: merge commit failed")
	// ErrRecursionDepthExceeded is the Tree strategy's fatal configuration
	// error: folding did not converge within maxTreeDepth passes.
	ErrRecursionDepthExceeded = errors.New("consolidate: recursion depth exceeded")
)

// Strategy is a tagged union: exactly one of Flat or Tree is set.
type Strategy struct {
	Flat *FlatParams
	Tree *TreeParams
}

// FlatParams configures ground-level octopus tagging.
type FlatParams struct {
	NumParents      int // [2, 255]
	NumUncompressed int // [0, 65535]
}

// TreeParams configures recursive folding to a single dura/cold root.
type TreeParams struct {
	NumParents      int
	NumUncompressed int
}

// member is a node eligible for folding into a merge commit: either a
// live dura/<anchor> branch (branch non-empty) or an already-written
// merge commit carried over from a previous fold pass (branch empty).
type member struct {
	branch string
	hash   plumbing.Hash
	when   time.Time
}

// Consolidate runs strategy against repoPath and returns the hashes of
// every newly created merge commit, in the order they were created.
func Consolidate(repoPath string, strategy Strategy) ([]plumbing.Hash, error) {
	repo, err := gitrepo.Open(repoPath)
	if err != nil {
		return nil, err
	}

	switch {
	case strategy.Flat != nil:
		created, _, err := runFlat(repo, strategy.Flat.NumParents, strategy.Flat.NumUncompressed, true)
		return created, err
	case strategy.Tree != nil:
		return runTree(repo, strategy.Tree.NumParents, strategy.Tree.NumUncompressed)
	default:
		return nil, fmt.Errorf("consolidate: strategy has neither Flat nor Tree set")
	}
}

// snapshotMembers enumerates snapshot branches (spec step 1) and orders
// them newest-first (step 2).
func snapshotMembers(repo *gitrepo.Repo) ([]member, error) {
	names, err := repo.ListBranches(snapshotBranchPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBranchEnumerationFailed, err)
	}

	var members []member
	for _, name := range names {
		if !isSnapshotBranch(name) {
			continue
		}
		hash, ok, err := repo.ResolveBranch(name)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving %s: %v", ErrBranchEnumerationFailed, name, err)
		}
		if !ok {
			continue
		}
		when := time.Unix(0, 0).UTC()
		if c, err := repo.CommitObject(hash); err == nil {
			when = c.Committer.When
		}
		members = append(members, member{branch: name, hash: hash, when: when})
	}

	sortNewestFirst(members)
	return members, nil
}

func sortNewestFirst(members []member) {
	sort.SliceStable(members, func(i, j int) bool { return members[i].when.After(members[j].when) })
}

// isSnapshotBranch reports whether name has exactly two slash-separated
// components "dura/<anchor>" — excluding the reserved "dura/cold" and
// "dura/cold/<n>" consolidation namespace.
func isSnapshotBranch(name string) bool {
	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] != "dura" {
		return false
	}
	return parts[1] != "cold"
}

// runFlat performs one Flat consolidation pass over the live branch set
// (spec §4.2 steps 1-8) and returns the merge commits created (oldest
// group first) plus, when the pass collapsed the eligible set to exactly
// one group, that group's hash. tagOutputs controls whether new
// dura/cold/<n> tags are written: the Flat strategy always does; the Tree
// strategy only wants this at its first level, where real branches are
// being retired.
func runFlat(repo *gitrepo.Repo, numParents, numUncompressed int, tagOutputs bool) ([]plumbing.Hash, plumbing.Hash, error) {
	all, err := snapshotMembers(repo)
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	if numUncompressed >= len(all) {
		return nil, plumbing.ZeroHash, nil
	}
	eligible := all[numUncompressed:]
	if len(eligible) == 0 {
		return nil, plumbing.ZeroHash, nil
	}

	excessIndex, excessParents, nextIndex, err := findExcessBucket(repo, numParents)
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}

	groups, excessGroup := groupEligible(eligible, numParents, excessParents)

	var created []plumbing.Hash
	var retiredBranches []string
	idx := nextIndex

	write := func(members []member, tagName string) (plumbing.Hash, error) {
		hash, err := mergeGroup(repo, members)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if tagOutputs && tagName != "" {
			if err := repo.SetTag(tagName, hash); err != nil {
				return plumbing.ZeroHash, fmt.Errorf("%w: tagging %s: %v", ErrMergeCommitFailed, tagName, err)
			}
		}
		return hash, nil
	}

	if excessGroup != nil {
		tagName := ""
		if tagOutputs {
			tagName = fmt.Sprintf("dura/cold/%d", excessIndex)
		}
		hash, err := write(excessGroup, tagName)
		if err != nil {
			return nil, plumbing.ZeroHash, err
		}
		created = append(created, hash)
		retiredBranches = append(retiredBranches, branchNames(excessGroup)...)
	}

	for _, g := range groups {
		idx++
		tagName := ""
		if tagOutputs {
			tagName = fmt.Sprintf("dura/cold/%d", idx)
		}
		hash, err := write(g, tagName)
		if err != nil {
			return nil, plumbing.ZeroHash, err
		}
		created = append(created, hash)
		retiredBranches = append(retiredBranches, branchNames(g)...)
	}

	for _, name := range retiredBranches {
		if err := repo.DeleteBranch(name); err != nil {
			return nil, plumbing.ZeroHash, fmt.Errorf("%w: deleting %s: %v", ErrMergeCommitFailed, name, err)
		}
	}

	var collapsed plumbing.Hash
	if len(created) == 1 {
		collapsed = created[0]
	}
	return created, collapsed, nil
}

func branchNames(members []member) []string {
	var names []string
	for _, m := range members {
		if m.branch != "" {
			names = append(names, m.branch)
		}
	}
	return names
}

// groupEligible implements spec steps 4-5: fold the excess bucket's
// existing parents together with the oldest eligible commits, then chunk
// the remainder into full-width groups, oldest-first.
func groupEligible(eligible []member, numParents int, excessParents []member) (groups [][]member, excessGroup []member) {
	remaining := eligible

	if excessParents != nil {
		need := numParents - len(excessParents)
		if need > len(remaining) {
			need = len(remaining)
		}
		if need < 0 {
			need = 0
		}
		// eligible is newest-first; the oldest members sit at the tail.
		taken := remaining[len(remaining)-need:]
		remaining = remaining[:len(remaining)-need]

		combined := append(append([]member{}, excessParents...), taken...)
		sortNewestFirst(combined)
		excessGroup = combined
	}

	n := len(remaining)
	if n == 0 {
		return nil, excessGroup
	}

	firstLen := n % numParents
	if firstLen == 0 {
		firstLen = numParents
	}

	// remaining is newest-first; the oldest slice sits at the tail and
	// becomes the first (possibly partial) group. A lone leftover commit
	// cannot form a merge commit (minimum arity 2) and is left
	// unconsolidated until a future pass gives it company.
	oldest := remaining[n-firstLen:]
	rest := remaining[:n-firstLen]
	if len(oldest) >= 2 {
		groups = append(groups, append([]member{}, oldest...))
	}
	var newerGroups [][]member
	for len(rest) > 0 {
		chunk := rest[len(rest)-numParents:]
		rest = rest[:len(rest)-numParents]
		newerGroups = append(newerGroups, append([]member{}, chunk...))
	}
	// newerGroups was built from the newest end backward, so the last one
	// appended is the oldest of the remaining full groups; reverse to get
	// oldest-to-newest order.
	for i := len(newerGroups) - 1; i >= 0; i-- {
		groups = append(groups, newerGroups[i])
	}

	return groups, excessGroup
}

// findExcessBucket locates the highest-indexed dura/cold/<k> tag whose
// merge commit has fewer than numParents parents, returning its index and
// its current parents as synthetic members (empty branch name, since
// there is no branch left to delete for them). A bucket that is already
// full, or no dura/cold/<k> tag at all, yields a nil parents slice —
// callers treat that as "no excess bucket".
func findExcessBucket(repo *gitrepo.Repo, numParents int) (index int, parents []member, nextIndex int, err error) {
	names, err := repo.ListTags("dura/cold/")
	if err != nil {
		return 0, nil, 0, fmt.Errorf("%w: %v", ErrBranchEnumerationFailed, err)
	}

	highest := 0
	for _, name := range names {
		suffix := strings.TrimPrefix(name, "dura/cold/")
		n, convErr := strconv.Atoi(suffix)
		if convErr != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	if highest == 0 {
		return 0, nil, 0, nil
	}

	tagName := fmt.Sprintf("dura/cold/%d", highest)
	hash, ok, err := repo.ResolveTag(tagName)
	if err != nil {
		return 0, nil, highest, fmt.Errorf("%w: resolving %s: %v", ErrBranchEnumerationFailed, tagName, err)
	}
	if !ok {
		return 0, nil, highest, nil
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return 0, nil, highest, fmt.Errorf("%w: reading %s: %v", ErrBranchEnumerationFailed, tagName, err)
	}
	if len(commit.ParentHashes) >= numParents {
		return 0, nil, highest, nil
	}

	bucketParents := make([]member, 0, len(commit.ParentHashes))
	for _, p := range commit.ParentHashes {
		when := time.Unix(0, 0).UTC()
		if pc, err := repo.CommitObject(p); err == nil {
			when = pc.Committer.When
		}
		bucketParents = append(bucketParents, member{hash: p, when: when})
	}
	return highest, bucketParents, highest, nil
}

// mergeGroup builds the octopus merge commit for members (already ordered
// newest-first): tree and author/committer copied from the newest member,
// parents in the same newest-first order.
func mergeGroup(repo *gitrepo.Repo, members []member) (plumbing.Hash, error) {
	if len(members) < 2 {
		return plumbing.ZeroHash, fmt.Errorf("%w: group has %d member(s), need at least 2", ErrMergeCommitFailed, len(members))
	}
	newest := members[0]
	newestCommit, err := repo.CommitObject(newest.hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: reading newest member %s: %v", ErrMergeCommitFailed, newest.hash, err)
	}

	parents := make([]plumbing.Hash, 0, len(members))
	for _, m := range members {
		parents = append(parents, m.hash)
	}

	sig := object.Signature{Name: newestCommit.Author.Name, Email: newestCommit.Author.Email, When: newestCommit.Author.When}
	hash, err := repo.WriteCommit(newestCommit.TreeHash, parents, MergeMessage, sig, sig)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %v", ErrMergeCommitFailed, err)
	}
	return hash, nil
}

// runTree repeatedly folds the eligible set (spec steps 9-11) until it
// collapses to a single commit, tagged dura/cold. Only the first pass
// reads from and retires live dura/<anchor> branches and writes
// dura/cold/<n> tags; later passes fold purely in memory over the
// previous pass's merge-commit hashes, since those were never branches.
func runTree(repo *gitrepo.Repo, numParents, numUncompressed int) ([]plumbing.Hash, error) {
	created, collapsed, err := runFlat(repo, numParents, numUncompressed, true)
	if err != nil {
		return nil, err
	}
	if collapsed != plumbing.ZeroHash {
		if err := repo.SetTag("dura/cold", collapsed); err != nil {
			return nil, fmt.Errorf("%w: tagging dura/cold: %v", ErrMergeCommitFailed, err)
		}
		return created, nil
	}
	if len(created) == 0 {
		return created, nil
	}

	frontier := created
	for depth := 1; depth < maxTreeDepth; depth++ {
		members, err := toMembers(repo, frontier)
		if err != nil {
			return nil, err
		}
		groups, _ := groupEligible(members, numParents, nil)

		var next []plumbing.Hash
		for _, g := range groups {
			hash, err := mergeGroup(repo, g)
			if err != nil {
				return nil, err
			}
			next = append(next, hash)
			created = append(created, hash)
		}

		if len(next) == 1 {
			if err := repo.SetTag("dura/cold", next[0]); err != nil {
				return nil, fmt.Errorf("%w: tagging dura/cold: %v", ErrMergeCommitFailed, err)
			}
			return created, nil
		}
		frontier = next
	}

	return nil, fmt.Errorf("%w: did not converge within %d passes", ErrRecursionDepthExceeded, maxTreeDepth)
}

func toMembers(repo *gitrepo.Repo, hashes []plumbing.Hash) ([]member, error) {
	members := make([]member, 0, len(hashes))
	for _, h := range hashes {
		when := time.Unix(0, 0).UTC()
		if c, err := repo.CommitObject(h); err == nil {
			when = c.Committer.When
		}
		members = append(members, member{hash: h, when: when})
	}
	sortNewestFirst(members)
	return members, nil
}
