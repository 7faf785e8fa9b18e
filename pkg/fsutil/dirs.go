package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory if it doesn't already exist, including any
// necessary parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirModeDefault); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureFileDir ensures that the directory containing the specified file exists.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
