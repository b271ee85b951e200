package discovery_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/tkellogg/dura/internal/config"
	"github.com/tkellogg/dura/internal/discovery"
)

func initBareMarker(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "init", "-q", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init %s: %v\n%s", dir, err, out)
	}
}

func collect(t *testing.T, entries []config.WatchEntry) []string {
	t.Helper()
	it := discovery.NewIterator(entries, nil, nil)
	var found []string
	for {
		path, ok := it.Next()
		if !ok {
			break
		}
		found = append(found, path)
	}
	return found
}

// S6, first case: a repo three levels deep is not yielded when max_depth
// caps traversal at two.
func TestDiscoveryRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "a", "b", "c")
	initBareMarker(t, repoDir)

	entries := []config.WatchEntry{
		{Root: root, Spec: config.RepoSpec{MaxDepth: 2}},
	}
	found := collect(t, entries)
	for _, p := range found {
		if p == repoDir {
			t.Fatalf("expected %s not to be yielded at max_depth=2", repoDir)
		}
	}
}

// S6, second case: an exclude that would otherwise prune "a" is
// overridden by a more specific include reaching into it.
func TestDiscoveryReincludeOverridesExclude(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "a", "b", "c")
	initBareMarker(t, repoDir)

	entries := []config.WatchEntry{
		{Root: root, Spec: config.RepoSpec{
			MaxDepth: 255,
			Exclude:  []string{"a"},
			Include:  []string{"a/b/c"},
		}},
	}
	found := collect(t, entries)

	seen := false
	for _, p := range found {
		if p == repoDir {
			seen = true
		}
	}
	if !seen {
		t.Errorf("expected %s to be yielded via re-include, got %v", repoDir, found)
	}
}

func TestDiscoveryExcludeWithoutReincludePrunes(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "a", "b", "c")
	initBareMarker(t, repoDir)

	entries := []config.WatchEntry{
		{Root: root, Spec: config.RepoSpec{MaxDepth: 255, Exclude: []string{"a"}}},
	}
	found := collect(t, entries)
	for _, p := range found {
		if p == repoDir {
			t.Fatalf("expected %s to be pruned by exclude with no matching include", repoDir)
		}
	}
}

func TestDiscoveryYieldsRootThatIsItselfARepo(t *testing.T) {
	root := t.TempDir()
	initBareMarker(t, root)

	entries := []config.WatchEntry{{Root: root, Spec: config.RepoSpec{MaxDepth: 255}}}
	found := collect(t, entries)
	if len(found) != 1 || found[0] != root {
		t.Errorf("expected exactly [%s], got %v", root, found)
	}
}
