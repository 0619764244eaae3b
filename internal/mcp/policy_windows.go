//go:build windows

package mcp

import (
	"os"
)

// openPolicyFile opens the policy file. Windows has no O_NOFOLLOW; a
// symlink is detected with Lstat first.
func openPolicyFile(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrPolicySymlink
	}
	return os.Open(path)
}

// checkFileOwnership is a no-op; Windows relies on ACLs.
func checkFileOwnership(_ *os.File) error {
	return nil
}
