package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirePaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "design.xsa")
	require.NoError(t, os.WriteFile(file, []byte("xsa"), FileMode))

	require.NoError(t, RequirePaths(File("XSA file", file), Dir("Workspace", dir)))

	err := RequirePaths(
		File("XSA file", file),
		Dir("Platform directory", filepath.Join(dir, "missing")),
		File("ELF file", filepath.Join(dir, "also-missing.elf")),
	)
	var missing *MissingPathError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Platform directory", missing.Description)
	assert.Equal(t, "Platform directory not found: "+filepath.Join(dir, "missing"), err.Error())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRequirePathsChecksKind(t *testing.T) {
	dir := t.TempDir()

	err := RequirePaths(File("ELF file", dir))
	assert.Error(t, err)

	assert.NoError(t, RequirePaths(PathCheck{Description: "anything", Path: dir}))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workspace", "nested")

	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	require.NoError(t, EnsureDir(dir))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/workspace")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "workspace"), expanded)

	expanded, err = ExpandPath("relative/dir")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(expanded))
}

func TestExpandPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPaths([]string{"~/app", "/src/cli_core"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "app"), "/src/cli_core"}, expanded)

	_, err = ExpandPaths([]string{"~other/app"})
	assert.Error(t, err)
}

func TestValidName(t *testing.T) {
	assert.NoError(t, ValidName("application", "arty_s7_riscv_app"))
	assert.Error(t, ValidName("application", ""))
	assert.Error(t, ValidName("application", ".."))
	assert.Error(t, ValidName("platform", "a/b"))
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "v1.12.3", Version{1, 12, 3}.String())
}
