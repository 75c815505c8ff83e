package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// FileMode is the default FileMode used when creating files.
const FileMode = 0664

// DirMode is the default FileMode used when creating directories.
const DirMode = 0775

// FileExists checks whether some file exists.
func FileExists(file string) bool {
	stat, err := os.Stat(file)
	return err == nil && !stat.IsDir()
}

// DirExists checks whether some directory exists.
func DirExists(dir string) bool {
	stat, err := os.Stat(dir)
	return err == nil && stat.IsDir()
}

// ExpandPath expands a leading '~' and turns `p` into an absolute, cleaned path.
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// ExpandPaths applies ExpandPath to each of `paths`.
func ExpandPaths(paths []string) ([]string, error) {
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		expanded, err := ExpandPath(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path '%s': %w", p, err)
		}
		result = append(result, expanded)
	}
	return result, nil
}

// EnsureDir creates `dir` and all of its parents unless it already exists.
func EnsureDir(dir string) error {
	if DirExists(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}
	return nil
}

// ValidName reports an error unless `name` can be used as a single path segment.
func ValidName(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s name must not be empty", kind)
	case name == "." || name == "..":
		return fmt.Errorf("%s name '%s' is not a valid directory name", kind, name)
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%s name '%s' must not contain a path separator", kind, name)
	}
	return nil
}
