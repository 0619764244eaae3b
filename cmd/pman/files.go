package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// vaultFileMode is the mode of vault files written by pman.
const vaultFileMode = 0600

func readVaultFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// writeVaultFile receives saved vaults. Sessions are named after the
// absolute path of their file, so name is where the data goes.
func writeVaultFile(name string, data []byte) error {
	if !filepath.IsAbs(name) {
		return fmt.Errorf("refusing to write vault to relative path %s", name)
	}
	return writeFileAtomic(name, data)
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pman-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(vaultFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", path, writeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync %s: %w", path, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return os.Rename(tmpName, path)
}
