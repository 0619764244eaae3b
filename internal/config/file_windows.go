//go:build windows

package config

import (
	"fmt"
	"os"
)

// openConfigFile opens path. Windows has no O_NOFOLLOW; the link check is done with Lstat.
func openConfigFile(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymlink, path)
	}
	return os.Open(path)
}

// checkFile is a no-op; Windows relies on ACLs.
func checkFile(_ *os.File) error {
	return nil
}
