package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/vbt/config"
)

func execute(t *testing.T, args ...string) error {
	t.Setenv("VBT_CONFIG_DIR", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestCommandsRegistered(t *testing.T) {
	names := []string{}
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"platform", "app", "run", "info", "version", "completion"})
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		args    []string
		missing string
	}{
		{[]string{"platform", "--xsa", "design.xsa", "--name", "arty"}, "workspace"},
		{[]string{"app", "--workspace", "ws", "--platform-dir", "p", "--name", "hello"}, "src"},
		{[]string{"run", "--xsa", "design.xsa"}, "elf"},
	}
	for _, test := range tests {
		t.Run(test.args[0], func(t *testing.T) {
			err := execute(t, test.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"`+test.missing+`"`)
		})
	}
}

func TestUnexpectedArguments(t *testing.T) {
	assert.Error(t, execute(t, "version", "extra"))
}

// newRunFlags returns a command carrying the configuration flags of `vbt run`, parsed from `args`.
func newRunFlags(t *testing.T, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "run"}
	addRunConfigFlags(cmd.Flags())
	for name := range runConfigFlags {
		require.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func useConfig(t *testing.T, content string) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	t.Setenv("VBT_CONFIG_DIR", dir)

	previous := config.Viper
	config.Viper = config.New()
	t.Cleanup(func() { config.Viper = previous })
	require.NoError(t, config.Load(config.Viper, ""))
}

func TestFlagsOverrideConfiguration(t *testing.T) {
	useConfig(t, "target_timeout: 30s\nhw_server_url: tcp:board:3121\ncable_name: JTAG-HS2\n")

	cmd := newRunFlags(t, "--target-timeout", "0", "--cable", "Arty")
	bindFlags(cmd, runConfigFlags)
	cfg := config.Get(config.Viper)

	assert.Equal(t, time.Duration(0), cfg.TargetTimeout)
	assert.Equal(t, "Arty", cfg.CableName)
	assert.Equal(t, "tcp:board:3121", cfg.HwServerURL)
	assert.Equal(t, 5*time.Second, cfg.RunFor)
}

func TestUnsetFlagsKeepConfiguration(t *testing.T) {
	useConfig(t, "target_timeout: 30s\n")

	bindFlags(newRunFlags(t), runConfigFlags)
	cfg := config.Get(config.Viper)

	assert.Equal(t, 30*time.Second, cfg.TargetTimeout)
	assert.Equal(t, "Digilent Arty S7 - 50", cfg.CableName)
}
