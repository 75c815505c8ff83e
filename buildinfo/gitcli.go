package buildinfo

import (
	"context"
	"errors"
	"strings"

	"github.com/daedaleanai/vbt/runner"
)

// GitCLI reads build metadata by invoking the git command line tool.
type GitCLI struct {
	// Program is the git executable. Empty means "git".
	Program string
	Dir     string
	Runner  runner.Runner
}

func (g GitCLI) run(ctx context.Context, args ...string) (string, error) {
	program := g.Program
	if program == "" {
		program = "git"
	}
	r := g.Runner
	if r == nil {
		r = runner.Exec{}
	}
	result, err := r.Run(ctx, program, args, runner.WithDir(g.Dir))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

func (g GitCLI) Hash(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

func (g GitCLI) Branch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

func (g GitCLI) Tag(ctx context.Context) (string, error) {
	return g.run(ctx, "describe", "--tags", "--abbrev=0")
}

// Dirty runs `git diff --quiet HEAD`, which exits with status 1 if there are changes.
func (g GitCLI) Dirty(ctx context.Context) (bool, error) {
	_, err := g.run(ctx, "diff", "--quiet", "HEAD")
	var exitErr *runner.ExitError
	switch {
	case err == nil:
		return false, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode == 1:
		return true, nil
	}
	return false, err
}

func (g GitCLI) CommitDate(ctx context.Context) (string, error) {
	return g.run(ctx, "log", "-1", "--format=%ci")
}
