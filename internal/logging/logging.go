package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvFilter names the environment variable that, when set, overrides the
// default log level with a zap level name (debug, info, warn, error).
const EnvFilter = "DURA_LOG"

// New builds the logger every dura process uses: JSON lines in the
// {target,file,name,level,time,fields} shape, written to w (typically a
// file opened by the serve command, or stderr for one-shot commands).
func New(name string, w zapcore.WriteSyncer) *zap.Logger {
	level := zapcore.InfoLevel
	if raw := os.Getenv(EnvFilter); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	core := zapcore.NewCore(NewEncoder(), w, level)
	return zap.New(core, zap.WithCaller(true)).Named(name)
}

// Snapshot describes one Snapshot Engine invocation's outcome, emitted
// into a log record's fields.operation key (spec §6).
type Snapshot struct {
	Repo    string        `json:"repo"`
	Op      *SnapshotOp   `json:"op"`
	Error   *string       `json:"error"`
	Latency float64       `json:"latency"`
}

// SnapshotOp is the non-nil branch of Snapshot.Op when a commit was
// actually written.
type SnapshotOp struct {
	DuraBranch string `json:"dura_branch"`
	CommitHash string `json:"commit_hash"`
	BaseHash   string `json:"base_hash"`
}

// CollectStats carries both latency histograms' summaries, emitted once
// per publish interval.
type CollectStats struct {
	PerDirStats interface{} `json:"per_dir_stats"`
	LoopStats   interface{} `json:"loop_stats"`
}

// LogSnapshot emits a Snapshot operation record, suppressed (per spec
// §4.5) when both Op and Error are nil — a no-op tick carries no record.
func LogSnapshot(logger *zap.Logger, s Snapshot) {
	if s.Op == nil && s.Error == nil {
		return
	}
	logger.Info("poll_tick", zap.Any("operation", map[string]interface{}{"Snapshot": s}))
}

// LogCollectStats emits a CollectStats record.
func LogCollectStats(logger *zap.Logger, c CollectStats) {
	logger.Info("stats_publish", zap.Any("operation", map[string]interface{}{"CollectStats": c}))
}
