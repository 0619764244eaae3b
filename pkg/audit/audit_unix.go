//go:build !windows

package audit

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// checkDiskSpace refuses writes when the log directory is nearly full.
func (l *Logger) checkDiskSpace() error {
	var st unix.Statfs_t
	if err := unix.Statfs(l.path, &st); err != nil {
		if err := unix.Statfs(filepath.Dir(l.path), &st); err != nil {
			l.log.Warn("audit disk space check failed", zap.Error(err))
			return nil
		}
	}
	available := st.Bavail * uint64(st.Bsize)
	if available < MinDiskSpace {
		return fmt.Errorf("%w: %d bytes available", ErrInsufficientDisk, available)
	}
	return nil
}
