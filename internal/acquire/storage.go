package acquire

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 10000

// EnsureDocumentsDir makes path a usable directory. A file or other
// non-directory entry already sitting there is moved aside to path_backup.
func EnsureDocumentsDir(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		backup := path + "_backup"
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("move %s aside: %w", path, err)
		}
		log.Printf("[acquire] %s was not a directory, moved to %s", path, backup)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// UniqueName returns name when it is free in dir, otherwise the first free
// base_N.ext for N = 1, 2, ...
func UniqueName(dir, name string) string {
	for i := 0; i < maxNameAttempts; i++ {
		candidate := numbered(name, i)
		if _, err := os.Lstat(filepath.Join(dir, candidate)); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
	return numbered(name, maxNameAttempts)
}

// createUnique creates a new file in dir under name or the next free numbered
// variant. O_EXCL makes the reservation atomic between concurrent callers.
func createUnique(dir, name string) (*os.File, string, error) {
	candidate := UniqueName(dir, name)
	for i := 0; i < maxNameAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = UniqueName(dir, name)
	}
	return nil, "", fmt.Errorf("no free name for %s in %s", name, dir)
}

func numbered(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
