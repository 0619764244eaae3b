//go:build !windows

package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openConfigFile opens path with O_NOFOLLOW so a symlink is refused.
func openConfigFile(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("config: %s: %w", path, os.ErrNotExist)
		}
		if errors.Is(err, unix.ELOOP) {
			return nil, fmt.Errorf("%w: %s", ErrSymlink, path)
		}
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

// checkFile rejects files writable by group or others and files owned by another user.
func checkFile(f *os.File) error {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return fmt.Errorf("config: failed to stat %s: %w", f.Name(), err)
	}
	if perm := st.Mode & 0777; perm&0022 != 0 {
		return fmt.Errorf("%w: %s (%o)", ErrInsecureFile, f.Name(), perm)
	}
	if st.Uid != uint32(os.Getuid()) {
		return ErrNotOwned
	}
	return nil
}
