// Package runner executes external tools and collects their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/daedaleanai/vbt/log"
)

// waitDelay bounds how long a killed command may hold on to its output pipes.
const waitDelay = 2 * time.Second

// Result holds the output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs a program with arguments.
type Runner interface {
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures a single command execution.
type Options struct {
	Dir     string
	Timeout time.Duration
	Env     map[string]string
	Stdin   io.Reader

	// Console mirrors the output of the command to os.Stdout/os.Stderr while capturing it.
	Console bool
}

// Option modifies Options.
type Option func(*Options)

// WithDir runs the command in `dir`.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithTimeout kills the command after `d`. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithEnv appends `key=value` to the environment of the command.
func WithEnv(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = map[string]string{}
		}
		o.Env[key] = value
	}
}

// WithStdin feeds `r` to the standard input of the command.
func WithStdin(r io.Reader) Option {
	return func(o *Options) {
		o.Stdin = r
	}
}

// WithConsole mirrors the command output to the console.
func WithConsole() Option {
	return func(o *Options) {
		o.Console = true
	}
}

// ExitError is returned when the command ran but exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("'%s' exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + lastLine(stderr)
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

// Exec runs commands as child processes.
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	commandLine := strings.Join(append([]string{program}, args...), " ")
	log.Debug("Running '%s'.\n", commandLine)

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = options.Dir
	cmd.WaitDelay = waitDelay
	cmd.Stdin = options.Stdin
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if options.Console {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	}

	err := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, fmt.Errorf("'%s' timed out after %s: %w", commandLine, options.Timeout, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Command: commandLine, ExitCode: result.ExitCode, Stderr: result.Stderr}
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run '%s': %w", commandLine, err)
	}
}
