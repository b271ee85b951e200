package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/tkellogg/dura/internal/logging"
	"github.com/tkellogg/dura/internal/poll"
)

var logFile string

func init() {
	serveCmd.Flags().StringVar(&logFile, "logfile", "", "Write structured logs to this file instead of stderr")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Claim the runtime lock and run the poll loop forever",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openLogSink()
		if err != nil {
			return err
		}
		defer closeSink()

		logger := logging.New("dura", sink)
		defer logger.Sync()

		loop := poll.New(logger)

		stop := make(chan struct{})
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			close(stop)
		}()

		return loop.Run(stop)
	},
}

func openLogSink() (zapcore.WriteSyncer, func(), error) {
	if logFile == "" {
		return zapcore.AddSync(os.Stderr), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", logFile, err)
	}
	return zapcore.AddSync(f), func() { f.Close() }, nil
}
