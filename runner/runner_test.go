package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)

	result, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2"})
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunExitCode(t *testing.T) {
	requireShell(t)

	result, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "echo broken >&2; exit 3"})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, 3, result.ExitCode)
	assert.True(t, strings.HasSuffix(err.Error(), ": broken"))
}

func TestRunTimeout(t *testing.T) {
	requireShell(t)

	_, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "exec sleep 5"}, WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRunMissingProgram(t *testing.T) {
	result, err := Exec{}.Run(context.Background(), "vbt-no-such-program", nil)
	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

func TestRunDirAndEnv(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	result, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "pwd; echo $VBT_TEST"},
		WithDir(dir), WithEnv("VBT_TEST", "hello"))
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "hello")
}

func TestRunStdin(t *testing.T) {
	requireShell(t)

	result, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "cat"}, WithStdin(strings.NewReader("piped")))
	require.NoError(t, err)
	assert.Equal(t, "piped", result.Stdout)
}
