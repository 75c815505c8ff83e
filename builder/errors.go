package builder

import (
	"errors"
	"fmt"
)

// ErrNoExecutable is returned when the SDK reported success but no executable was produced.
var ErrNoExecutable = errors.New("no executable was generated")

// ErrPlatformNotFound is returned when no registered repository contains the platform.
var ErrPlatformNotFound = errors.New("platform not found in repository")

// StageError wraps the error of the build stage that aborted a build.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed to %s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// runStage runs `fn` and wraps its error with `stage`.
func runStage(stage string, fn func() error) error {
	if err := fn(); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return err
		}
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}
