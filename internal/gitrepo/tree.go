package gitrepo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// BuildTree walks the working directory bottom-up and writes a fresh blob
// for every non-ignored file and a fresh tree object for every directory,
// without touching the real index (spec §4.1 steps 5-7). matcher applies
// the repository's own .gitignore files in addition to extraPatterns
// (dura's own include/exclude config, applied relative to root).
func (r *Repo) BuildTree(extraPatterns []string) (plumbing.Hash, error) {
	root := r.Path
	gi := ignore.CompileIgnoreLines(extraPatterns...)

	patterns, err := gitignorePatterns(root)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: reading gitignore files: %v", ErrObjectWrite, err)
	}
	repoIgnore := gitignore.NewMatcher(patterns)

	hash, _, err := r.buildDirTree(root, nil, gi, repoIgnore)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return hash, nil
}

// buildDirTree returns the tree hash for dir and whether it contains any
// entries at all (an empty directory is omitted from its parent, same as
// git's normal tree semantics).
func (r *Repo) buildDirTree(dir string, relParts []string, gi *ignore.GitIgnore, repoIgnore gitignore.Matcher) (plumbing.Hash, bool, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: reading %s: %v", ErrObjectWrite, dir, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	var entries []object.TreeEntry
	for _, item := range items {
		name := item.Name()
		if name == ".git" {
			continue
		}
		childRel := append(append([]string{}, relParts...), name)
		relPath := strings.Join(childRel, "/")

		if gi.MatchesPath(relPath) || repoIgnore.Match(childRel, item.IsDir()) {
			continue
		}

		childPath := filepath.Join(dir, name)
		info, err := item.Info()
		if err != nil {
			return plumbing.ZeroHash, false, fmt.Errorf("%w: stat %s: %v", ErrObjectWrite, childPath, err)
		}

		if item.IsDir() {
			hash, nonEmpty, err := r.buildDirTree(childPath, childRel, gi, repoIgnore)
			if err != nil {
				return plumbing.ZeroHash, false, err
			}
			if !nonEmpty {
				continue
			}
			entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
			continue
		}

		mode, hash, err := r.writeBlob(childPath, info)
		if err != nil {
			return plumbing.ZeroHash, false, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: mode, Hash: hash})
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, false, nil
	}

	sortTreeEntries(entries)
	tree := &object.Tree{Entries: entries}
	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: encoding tree for %s: %v", ErrObjectWrite, dir, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: storing tree for %s: %v", ErrObjectWrite, dir, err)
	}
	return hash, true, nil
}

func (r *Repo) writeBlob(path string, info fs.FileInfo) (filemode.FileMode, plumbing.Hash, error) {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return 0, plumbing.ZeroHash, fmt.Errorf("%w: reading symlink %s: %v", ErrObjectWrite, path, err)
		}
		hash, err := r.storeBlob([]byte(target))
		return filemode.Symlink, hash, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, plumbing.ZeroHash, fmt.Errorf("%w: reading %s: %v", ErrObjectWrite, path, err)
	}
	mode := filemode.Regular
	if info.Mode()&0o111 != 0 {
		mode = filemode.Executable
	}
	hash, err := r.storeBlob(data)
	return mode, hash, err
}

func (r *Repo) storeBlob(data []byte) (plumbing.Hash, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: opening blob writer: %v", ErrObjectWrite, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("%w: writing blob: %v", ErrObjectWrite, err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: closing blob writer: %v", ErrObjectWrite, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: storing blob: %v", ErrObjectWrite, err)
	}
	return hash, nil
}

// sortTreeEntries orders entries the way git requires: byte-wise by name,
// as if directory names carried a trailing slash. Without this, the tree
// hash would not match what `git cat-file -p` produces for the same
// content, and some git implementations reject the object outright.
func sortTreeEntries(entries []object.TreeEntry) {
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool { return key(entries[i]) < key(entries[j]) })
}

func gitignorePatterns(root string) ([]gitignore.Pattern, error) {
	var patterns []gitignore.Pattern
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable .gitignore does not block a snapshot
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		var domain []string
		if rel != "." {
			domain = strings.Split(filepath.ToSlash(rel), "/")
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
		return nil
	})
	return patterns, err
}
