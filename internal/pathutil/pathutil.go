// Package pathutil provides shared path validation helpers.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths that can never name a file: empty paths,
// paths containing null bytes, and paths ending in a separator.
func ValidateFilePath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}
	if strings.HasSuffix(filepath.ToSlash(filePath), "/") {
		return fmt.Errorf("file path %q names a directory", filePath)
	}
	return nil
}

// EnsureParentDir creates every missing ancestor directory of filePath.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}
	return nil
}
