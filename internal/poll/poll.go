// Package poll implements the daemon's single cooperative task: wake at a
// fixed interval, re-validate the runtime lock, re-read configuration,
// and run the Change Guard and Snapshot Engine over every discovered
// repository.
package poll

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tkellogg/dura/internal/changeguard"
	"github.com/tkellogg/dura/internal/config"
	"github.com/tkellogg/dura/internal/discovery"
	"github.com/tkellogg/dura/internal/logging"
	"github.com/tkellogg/dura/internal/runtimelock"
	"github.com/tkellogg/dura/internal/snapshot"
	"github.com/tkellogg/dura/internal/stats"
)

// Interval is the fixed tick period (spec §4.5 step 2).
const Interval = 5 * time.Second

// StatsPublishInterval is the default cadence CollectStats records are
// emitted at (spec §4.5 step 5).
const StatsPublishInterval = 600 * time.Second

// Loop owns the long-lived state a running daemon threads across ticks:
// the repo-handle cache inside the Change Guard, the directory-listing
// cache, and the stats histograms.
type Loop struct {
	pid    uint32
	logger *zap.Logger

	guard     *changeguard.Guard
	dirCache  *discovery.DirCache
	collector *stats.Collector
}

// New constructs a Loop for the current process.
func New(logger *zap.Logger) *Loop {
	return &Loop{
		pid:       uint32(os.Getpid()),
		logger:    logger,
		guard:     changeguard.New(),
		dirCache:  discovery.NewDirCache(5*time.Minute, Interval),
		collector: stats.NewCollector(StatsPublishInterval),
	}
}

// Run writes this process's PID into the runtime lock, then ticks forever
// until the lock names a different PID. It returns nil only when stop is
// closed by the caller; a lock mismatch causes os.Exit(1), matching spec
// §4.5 step 1's "terminate the process" wording exactly.
func (l *Loop) Run(stop <-chan struct{}) error {
	if err := runtimelock.Claim(l.pid); err != nil {
		return fmt.Errorf("poll: claiming runtime lock: %w", err)
	}

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if !l.tick() {
				os.Exit(1)
			}
		}
	}
}

// tick runs one iteration and returns false when the runtime lock no
// longer names this process, signalling the caller to terminate.
func (l *Loop) tick() bool {
	lock, err := runtimelock.Load()
	if err != nil || !lock.HeldBy(l.pid) {
		l.logger.Error("lock mismatch, exiting")
		return false
	}

	cfg := config.Load()
	id := cfg.Identity()

	l.dirCache.Advance()
	it := discovery.NewIterator(cfg.Entries(), l.dirCache, func(dir string, err error) {
		l.logger.Warn("read_dir failed", zap.String("dir", dir), zap.Error(err))
	})

	loopStart := time.Now()
	for {
		path, ok := it.Next()
		if !ok {
			break
		}
		l.visit(path, id)
	}
	l.collector.RecordLoop(time.Since(loopStart))

	if l.collector.Due() {
		perDir, loop := l.collector.Snapshot()
		logging.LogCollectStats(l.logger, logging.CollectStats{PerDirStats: perDir, LoopStats: loop})
		l.collector.Reset()
	}

	return true
}

func (l *Loop) visit(path string, id config.Identity) {
	start := time.Now()

	if !l.guard.Changed(path) {
		l.collector.RecordDir(time.Since(start))
		return
	}

	result, err := snapshot.Capture(path, id, nil)
	l.collector.RecordDir(time.Since(start))

	rec := logging.Snapshot{Repo: path, Latency: time.Since(start).Seconds()}
	if err != nil {
		msg := err.Error()
		rec.Error = &msg
	} else if result != nil {
		rec.Op = &logging.SnapshotOp{
			DuraBranch: result.DuraBranch,
			CommitHash: result.NewCommit.String(),
			BaseHash:   result.BaseHead.String(),
		}
	}
	logging.LogSnapshot(l.logger, rec)
}
