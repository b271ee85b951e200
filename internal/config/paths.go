// Package config loads and persists the dura watch set and identity
// overrides, and resolves the platform-conventional config and cache
// directories (with environment overrides).
package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigHome overrides the directory that holds config.toml.
	EnvConfigHome = "DURA_CONFIG_HOME"
	// EnvCacheHome overrides the directory that holds runtime.db.
	EnvCacheHome = "DURA_CACHE_HOME"

	configFileName = "config.toml"
	lockFileName   = "runtime.db"
)

// Root returns the directory config.toml lives in, honoring EnvConfigHome.
func Root() (string, error) {
	if dir := os.Getenv(EnvConfigHome); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dura"), nil
}

// CacheRoot returns the directory runtime.db lives in, honoring EnvCacheHome.
// Distinct from Root: the lock file and the config file are never colocated,
// so a stale cache can be cleared without disturbing the watch set.
func CacheRoot() (string, error) {
	if dir := os.Getenv(EnvCacheHome); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dura"), nil
}

// FilePath returns the full path to config.toml.
func FilePath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, configFileName), nil
}

// LockFilePath returns the full path to runtime.db.
func LockFilePath() (string, error) {
	root, err := CacheRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, lockFileName), nil
}
