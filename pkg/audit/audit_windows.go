//go:build windows

package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// checkDiskSpace refuses writes when the log directory is nearly full.
func (l *Logger) checkDiskSpace() error {
	path := l.path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Dir(path)
	}
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("audit: failed to convert path: %w", err)
	}
	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &available, &total, &free); err != nil {
		l.log.Warn("audit disk space check failed", zap.Error(err))
		return nil
	}
	if available < MinDiskSpace {
		return fmt.Errorf("%w: %d bytes available", ErrInsufficientDisk, available)
	}
	return nil
}
