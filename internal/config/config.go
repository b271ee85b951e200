package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultAuthor and DefaultEmail are used when no identity override is
// configured and the repository's own identity is unavailable or excluded.
const (
	DefaultAuthor = "dura"
	DefaultEmail  = "dura@github.io"
)

// RepoSpec is the on-disk shape of a single watch entry: include/exclude
// patterns are ordered relative-path globs, max_depth bounds the recursive
// directory walk below the root.
type RepoSpec struct {
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
	MaxDepth int      `toml:"max_depth"`
}

// Config is the parsed shape of config.toml.
type Config struct {
	CommitExcludeGitConfig bool                `toml:"commit_exclude_git_config"`
	CommitAuthor           string              `toml:"commit_author"`
	CommitEmail            string              `toml:"commit_email"`
	Repos                  map[string]RepoSpec `toml:"repos"`
}

// Identity resolves the identity-config portion of Config: explicit
// overrides plus whether falling back to the repository's own identity
// settings is forbidden.
type Identity struct {
	Author             string
	Email              string
	ExcludeSCMIdentity bool
}

// WatchEntry pairs a canonicalized root with its spec. Config.Entries
// returns these in sorted order so that iteration is stable across runs.
type WatchEntry struct {
	Root string
	Spec RepoSpec
}

// Identity extracts the identity overrides from the loaded config.
func (c *Config) Identity() Identity {
	return Identity{
		Author:             c.CommitAuthor,
		Email:              c.CommitEmail,
		ExcludeSCMIdentity: c.CommitExcludeGitConfig,
	}
}

// Entries returns the watch set as a stably ordered slice, sorted by root
// path. The watch set's data model requires unique keys and stable
// iteration order; map iteration in Go is randomized, so every consumer
// must go through this method rather than ranging over Config.Repos
// directly.
func (c *Config) Entries() []WatchEntry {
	entries := make([]WatchEntry, 0, len(c.Repos))
	for root, spec := range c.Repos {
		entries = append(entries, WatchEntry{Root: root, Spec: spec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Root < entries[j].Root })
	return entries
}

// SetWatch adds or replaces the watch spec for root, canonicalizing the
// path first.
func (c *Config) SetWatch(root string, spec RepoSpec) error {
	abs, err := canonicalize(root)
	if err != nil {
		return err
	}
	if c.Repos == nil {
		c.Repos = make(map[string]RepoSpec)
	}
	c.Repos[abs] = spec
	return nil
}

// Unwatch removes the watch spec for root, if present. Reports whether an
// entry was actually removed.
func (c *Config) Unwatch(root string) (bool, error) {
	abs, err := canonicalize(root)
	if err != nil {
		return false, err
	}
	if _, ok := c.Repos[abs]; !ok {
		return false, nil
	}
	delete(c.Repos, abs)
	return true, nil
}

func canonicalize(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Path may not exist yet (e.g. unwatch of an already-removed dir);
		// fall back to the non-symlink-resolved absolute form.
		return abs, nil
	}
	return resolved, nil
}

// Load reads config.toml from its platform-conventional location. A
// missing file or a parse error both yield an empty Config — the daemon
// neither creates nor requires this file at startup (spec §4.7, §7.4).
func Load() *Config {
	path, err := FilePath()
	if err != nil {
		return &Config{}
	}
	return LoadFrom(path)
}

// LoadFrom reads config.toml from an explicit path, same missing/parse
// semantics as Load.
func LoadFrom(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Config{}
	}
	cfg, err := parse(data)
	if err != nil {
		return &Config{}
	}
	return cfg
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}
	if cfg.Repos == nil {
		cfg.Repos = make(map[string]RepoSpec)
	}
	return &cfg, nil
}

// Save writes cfg to config.toml at its platform-conventional location,
// creating parent directories as needed and replacing the file atomically.
func Save(cfg *Config) error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg to an explicit path using the same atomic-replace
// semantics as Save.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding config.toml: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config.toml: %w", err)
	}
	return nil
}
