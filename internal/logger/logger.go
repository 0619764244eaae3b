// Package logger holds the process-wide zap logger.
package logger

import (
	"os"

	"go.uber.org/zap"
)

// Log is shared by the whole binary. Only Initialize replaces it.
// It discards everything until then.
var Log *zap.Logger = zap.NewNop()

// Initialize builds the logger for level. With logFile set, output goes to
// that file (truncated first) instead of stderr.
func Initialize(level, logFile string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	if logFile != "" {
		if err := os.Truncate(logFile, 0); err != nil && !os.IsNotExist(err) {
			return err
		}
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.With(zap.String("app", "pman"))
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
