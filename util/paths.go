package util

import (
	"fmt"
	"os"
)

// PathKind tells RequirePaths what a path is expected to point at.
type PathKind int

const (
	AnyPath PathKind = iota
	FilePath
	DirPath
)

// PathCheck names a path that must exist before any tool is invoked.
type PathCheck struct {
	Description string
	Path        string
	Kind        PathKind
}

// File returns a PathCheck for a regular file.
func File(description, path string) PathCheck {
	return PathCheck{Description: description, Path: path, Kind: FilePath}
}

// Dir returns a PathCheck for a directory.
func Dir(description, path string) PathCheck {
	return PathCheck{Description: description, Path: path, Kind: DirPath}
}

// MissingPathError is returned by RequirePaths for the first path that does not exist.
type MissingPathError struct {
	Description string
	Path        string
}

func (e *MissingPathError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Description, e.Path)
}

// Is makes errors.Is(err, os.ErrNotExist) hold for missing paths.
func (e *MissingPathError) Is(target error) bool {
	return target == os.ErrNotExist
}

func (c PathCheck) exists() bool {
	switch c.Kind {
	case FilePath:
		return FileExists(c.Path)
	case DirPath:
		return DirExists(c.Path)
	}
	_, err := os.Stat(c.Path)
	return err == nil
}

// RequirePaths checks `checks` in order and fails on the first missing path.
func RequirePaths(checks ...PathCheck) error {
	for _, check := range checks {
		if !check.exists() {
			return &MissingPathError{Description: check.Description, Path: check.Path}
		}
	}
	return nil
}
