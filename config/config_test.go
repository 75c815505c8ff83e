package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("VBT_CONFIG_DIR", t.TempDir())
	v := New()
	require.NoError(t, Load(v, ""))

	cfg := Get(v)
	assert.Equal(t, "vitis", cfg.Vitis)
	assert.Equal(t, "tcp:127.0.0.1:3121", cfg.HwServerURL)
	assert.Equal(t, "microblaze_riscv_0", cfg.CPU)
	assert.Equal(t, "standalone", cfg.OS)
	assert.Equal(t, 60*time.Second, cfg.TargetTimeout)
	assert.Equal(t, time.Second, cfg.TargetInterval)
}

func TestConfigFileFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VBT_CONFIG_DIR", dir)
	content := "vitis: /tools/Xilinx/Vitis/2024.2/bin/vitis\ntarget_timeout: 90s\ncable_serial: 210352AD6E7CA\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0664))

	v := New()
	require.NoError(t, Load(v, ""))

	cfg := Get(v)
	assert.Equal(t, "/tools/Xilinx/Vitis/2024.2/bin/vitis", cfg.Vitis)
	assert.Equal(t, 90*time.Second, cfg.TargetTimeout)
	assert.Equal(t, "210352AD6E7CA", cfg.CableSerial)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("xsdb: /opt/xsdb\n"), 0664))
	t.Setenv("VBT_XSDB", "/usr/local/bin/xsdb")

	v := New()
	require.NoError(t, Load(v, file))
	assert.Equal(t, "/usr/local/bin/xsdb", Get(v).Xsdb)
}

func TestExplicitFileMustExist(t *testing.T) {
	v := New()
	assert.Error(t, Load(v, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestSettingsOrderedAndRedacted(t *testing.T) {
	t.Setenv("VBT_SIGN_PASSPHRASE", "hunter2")
	v := New()

	settings, err := Settings(v)
	require.NoError(t, err)

	keys := []string{}
	values := map[string]string{}
	for _, setting := range settings {
		keys = append(keys, setting.Key)
		values[setting.Key] = setting.Value
	}
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, TargetTimeout)
	assert.Equal(t, "<redacted>", values[SignPassphrase])
	assert.Equal(t, "", values[SignKey])
	assert.Equal(t, "1m0s", values[TargetTimeout])
}
