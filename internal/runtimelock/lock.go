// Package runtimelock implements the single-writer handoff protocol: a
// PID record shared by every dura process, stored separately from the
// watch-set config so that clearing the lock never touches user config.
package runtimelock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tkellogg/dura/internal/config"
)

// Lock is the sole persisted record: the PID of the process that currently
// claims to be the live daemon, or nil if none does.
type Lock struct {
	PID *uint32 `json:"pid"`
}

// Load reads runtime.db. A missing file or a parse error both yield an
// empty lock (PID nil) rather than an error — this mirrors Config.Load's
// "never block startup on a corrupt state file" policy.
func Load() (*Lock, error) {
	path, err := config.LockFilePath()
	if err != nil {
		return &Lock{}, nil
	}
	return LoadFrom(path), nil
}

// LoadFrom reads runtime.db from an explicit path.
func LoadFrom(path string) *Lock {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Lock{}
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return &Lock{}
	}
	return &lock
}

// Save writes lock to runtime.db, creating parent directories as needed
// and replacing the file atomically (a temp file is written, then renamed
// over runtime.db).
func Save(lock *Lock) error {
	path, err := config.LockFilePath()
	if err != nil {
		return err
	}
	return SaveTo(path, lock)
}

// SaveTo writes lock to an explicit path using the same atomic-replace
// semantics as Save.
func SaveTo(path string, lock *Lock) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("encoding runtime.db: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".runtime-*.db")
	if err != nil {
		return fmt.Errorf("creating temp lock file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing runtime.db: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp lock file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing runtime.db: %w", err)
	}
	return nil
}

// Claim writes pid into the lock, overwriting whatever was previously
// there. Used by a newly started daemon; `dura kill` uses Clear instead.
func Claim(pid uint32) error {
	return Save(&Lock{PID: &pid})
}

// Clear removes the PID from the lock without deleting the file, matching
// the `kill` command's semantics (spec §6 CLI surface).
func Clear() error {
	return Save(&Lock{PID: nil})
}

// HeldBy reports whether the lock currently names pid.
func (l *Lock) HeldBy(pid uint32) bool {
	return l.PID != nil && *l.PID == pid
}
