// Package pathutil provides shared path validation helpers.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrNoWritableAncestor is returned when no existing ancestor of a directory is writable.
var ErrNoWritableAncestor = errors.New("no writable ancestor directory")

// ValidateOutputPath rejects empty export paths and paths containing null bytes.
func ValidateOutputPath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}
	return nil
}

// HasExtension reports whether path ends in ext (with dot), ignoring case.
func HasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// WritableAncestor walks upward from dir to the first directory that exists
// and returns it if the current process may write to it. Missing directories
// on the way are skipped; an existing but unwritable one stops the walk.
func WritableAncestor(dir string) (string, error) {
	current := filepath.Clean(dir)
	for {
		info, err := os.Stat(current)
		switch {
		case err == nil:
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			if unix.Access(current, unix.W_OK) == nil {
				return current, nil
			}
			return "", fmt.Errorf("%w: %s is not writable", ErrNoWritableAncestor, current)
		case errors.Is(err, fs.ErrNotExist):
			// keep walking
		default:
			return "", fmt.Errorf("checking %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w above %s", ErrNoWritableAncestor, dir)
		}
		current = parent
	}
}
