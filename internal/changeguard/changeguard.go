// Package changeguard implements the fast "has anything changed?" check
// the Poll Loop runs before paying the cost of opening a repository's
// object database: a cached watermark timestamp compared against
// filesystem mtimes, with a full second of slack to absorb filesystem
// timestamp granularity.
package changeguard

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/tkellogg/dura/internal/gitrepo"
)

// slack is the coarse tolerance above the watermark a file's mtime must
// exceed before a change is reported; filesystems and commit timestamps
// both truncate to whole seconds, so anything tighter produces false
// negatives on same-second edits.
const slack = time.Second

// Guard caches an opened repository handle per path across poll ticks,
// the way the daemon's single long-lived task is expected to (spec §5:
// "Repo-handle cache inside Change Guard ... held for the process
// lifetime").
type Guard struct {
	mu    sync.Mutex
	repos map[string]*gitrepo.Repo
}

// New returns an empty Guard ready to cache repository handles.
func New() *Guard {
	return &Guard{repos: make(map[string]*gitrepo.Repo)}
}

// Changed reports whether repoPath has plausibly changed since its last
// recorded watermark. It never returns a false negative: any failure
// resolving the watermark or walking the tree reports true, disabling
// the fast path rather than risking a missed snapshot.
func (g *Guard) Changed(repoPath string) bool {
	repo := g.repoFor(repoPath)
	if repo == nil {
		return true
	}

	watermark, err := g.watermark(repo)
	if err != nil {
		return true
	}

	changed, err := anyFileNewerThan(repoPath, watermark)
	if err != nil {
		return true
	}
	return changed
}

func (g *Guard) repoFor(repoPath string) *gitrepo.Repo {
	g.mu.Lock()
	defer g.mu.Unlock()

	if repo, ok := g.repos[repoPath]; ok {
		return repo
	}
	repo, err := gitrepo.Open(repoPath)
	if err != nil {
		return nil
	}
	g.repos[repoPath] = repo
	return repo
}

// watermark resolves HEAD, then prefers the commit time of the
// HEAD-anchored snapshot branch; falling back to HEAD's own time when no
// snapshot has been taken yet for this anchor.
func (g *Guard) watermark(repo *gitrepo.Repo) (time.Time, error) {
	head, err := repo.Head()
	if err != nil {
		return time.Time{}, err
	}

	branchName := "dura/" + head.String()
	if tip, ok, err := repo.ResolveBranch(branchName); err == nil && ok {
		if when, err := repo.CommitTime(tip); err == nil {
			return when, nil
		}
	}
	return repo.CommitTime(head)
}

// anyFileNewerThan walks the working tree (skipping .git) looking for any
// regular file whose mtime exceeds watermark by more than slack.
func anyFileNewerThan(root string, watermark time.Time) (bool, error) {
	cutoff := watermark.Add(slack)
	found := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if found {
			return filepath.SkipAll
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // a file that vanished mid-walk is not evidence of a change
		}
		if info.ModTime().After(cutoff) {
			found = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
