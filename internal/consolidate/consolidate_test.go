package consolidate_test

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tkellogg/dura/internal/consolidate"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// commitAt creates an empty commit on the current branch at the given
// offset in minutes from a fixed base time, so branch tips sort
// deterministically by commit time.
func commitAt(t *testing.T, dir string, branch string, minutesOffset int) string {
	t.Helper()
	runGit(t, dir, "checkout", "-q", "main")
	runGit(t, dir, "checkout", "-q", "-b", branch)
	when := time.Date(2026, 1, 1, 0, minutesOffset, 0, 0, time.UTC).Format(time.RFC3339)
	cmd := exec.Command("git", "commit", "-q", "--allow-empty", "-m", "snapshot")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=dura", "GIT_AUTHOR_EMAIL=dura@github.io",
		"GIT_COMMITTER_NAME=dura", "GIT_COMMITTER_EMAIL=dura@github.io",
		"GIT_AUTHOR_DATE="+when, "GIT_COMMITTER_DATE="+when,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
	return runGit(t, dir, "rev-parse", "HEAD")
}

// S5: 4 single-commit snapshot branches, oldest b0 .. newest b3, folded
// with Flat{num_parents=2, num_uncompressed=0} produces two tags whose
// parent order is newest-first within each pair.
func TestConsolidateFlatPairsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "checkout", "-q", "-b", "main")
	if out, err := exec.Command("git", "-C", dir, "commit", "-q", "--allow-empty", "-m", "root").CombinedOutput(); err != nil {
		t.Fatalf("root commit: %v\n%s", err, out)
	}

	b0 := commitAt(t, dir, "dura/aaaa0", 0)
	b1 := commitAt(t, dir, "dura/aaaa1", 10)
	b2 := commitAt(t, dir, "dura/aaaa2", 20)
	b3 := commitAt(t, dir, "dura/aaaa3", 30)
	runGit(t, dir, "checkout", "-q", "main")

	created, err := consolidate.Consolidate(dir, consolidate.Strategy{
		Flat: &consolidate.FlatParams{NumParents: 2, NumUncompressed: 0},
	})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 merge commits, got %d", len(created))
	}

	for _, n := range []int{1, 2} {
		out := runGit(t, dir, "tag", "--list", "dura/cold/"+strconv.Itoa(n))
		if out == "" {
			t.Errorf("expected tag dura/cold/%d to exist", n)
		}
	}

	parents1 := runGit(t, dir, "log", "--format=%P", "-1", "dura/cold/1")
	if parents1 != b1+" "+b0 {
		t.Errorf("dura/cold/1 parents = %q, want %q", parents1, b1+" "+b0)
	}
	parents2 := runGit(t, dir, "log", "--format=%P", "-1", "dura/cold/2")
	if parents2 != b3+" "+b2 {
		t.Errorf("dura/cold/2 parents = %q, want %q", parents2, b3+" "+b2)
	}

	for _, name := range []string{"dura/aaaa0", "dura/aaaa1", "dura/aaaa2", "dura/aaaa3"} {
		out, err := exec.Command("git", "-C", dir, "branch", "--list", name).CombinedOutput()
		if err != nil {
			t.Fatalf("git branch --list %s: %v", name, err)
		}
		if strings.TrimSpace(string(out)) != "" {
			t.Errorf("expected branch %s to be deleted", name)
		}
	}
}

// A single-branch eligible set has nothing to pair up: Consolidate must
// not attempt to build a 1-parent "octopus" merge.
func TestConsolidateFlatRequiresTwoParents(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "checkout", "-q", "-b", "main")
	if out, err := exec.Command("git", "-C", dir, "commit", "-q", "--allow-empty", "-m", "root").CombinedOutput(); err != nil {
		t.Fatalf("root commit: %v\n%s", err, out)
	}
	commitAt(t, dir, "dura/onlyone", 0)
	runGit(t, dir, "checkout", "-q", "main")

	created, err := consolidate.Consolidate(dir, consolidate.Strategy{
		Flat: &consolidate.FlatParams{NumParents: 2, NumUncompressed: 0},
	})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no merge commits for a single-branch eligible set, got %d", len(created))
	}
}
