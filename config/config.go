package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/util"
)

const configFileName = "config"
const configFileType = "yaml"
const envPrefix = "VBT"

// Keys understood by the configuration file, VBT_* environment variables and flags.
const (
	Vitis           = "vitis"
	Xsdb            = "xsdb"
	Git             = "git"
	VCS             = "vcs"
	HwServerURL     = "hw_server_url"
	CableName       = "cable_name"
	CableSerial     = "cable_serial"
	Processor       = "processor"
	CPU             = "cpu"
	OS              = "os"
	TargetTimeout   = "target_timeout"
	TargetInterval  = "target_interval"
	MetadataTimeout = "metadata_timeout"
	RunFor          = "run_for"
	SignKey         = "sign_key"
	SignPassphrase  = "sign_passphrase"
)

// Config holds the settings shared by all commands.
type Config struct {
	Vitis           string
	Xsdb            string
	Git             string
	VCS             string
	HwServerURL     string
	CableName       string
	CableSerial     string
	Processor       string
	CPU             string
	OS              string
	TargetTimeout   time.Duration
	TargetInterval  time.Duration
	MetadataTimeout time.Duration
	RunFor          time.Duration
	SignKey         string
	SignPassphrase  string
}

// Viper is the configuration registry. Commands bind their flags to it.
var Viper = New()

// New returns a registry populated with the defaults and bound to the environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(Vitis, "vitis")
	v.SetDefault(Xsdb, "xsdb")
	v.SetDefault(Git, "git")
	v.SetDefault(VCS, "gogit")
	v.SetDefault(HwServerURL, "tcp:127.0.0.1:3121")
	v.SetDefault(CableName, "Digilent Arty S7 - 50")
	v.SetDefault(CableSerial, "")
	v.SetDefault(Processor, "*Hart*#0")
	v.SetDefault(CPU, "microblaze_riscv_0")
	v.SetDefault(OS, "standalone")
	v.SetDefault(TargetTimeout, 60*time.Second)
	v.SetDefault(TargetInterval, time.Second)
	v.SetDefault(MetadataTimeout, 5*time.Second)
	v.SetDefault(RunFor, 5*time.Second)
	v.SetDefault(SignKey, "")
	v.SetDefault(SignPassphrase, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// configDir locates the directory holding the configuration file.
func configDir() (string, error) {
	if dir, ok := os.LookupEnv("VBT_CONFIG_DIR"); ok {
		return dir, nil
	}

	if xdgConfigHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdgConfigHome, "vbt"), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("unable to locate the configuration directory: %w", err)
	}
	return filepath.Join(home, ".config", "vbt"), nil
}

// Load reads `file`, or the default configuration file if `file` is empty, into `v`.
// A missing default configuration file is not an error.
func Load(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file '%s': %w", file, err)
		}
		log.Debug("Loaded configuration from '%s'.\n", file)
		return nil
	}

	dir, err := configDir()
	if err != nil {
		log.Debug("%s. Using default configuration.\n", err)
		return nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug("No configuration file in '%s'. Using default configuration.\n", dir)
			return nil
		}
		return fmt.Errorf("failed to read configuration from '%s': %w", dir, err)
	}

	log.Debug("Loaded configuration from '%s'.\n", v.ConfigFileUsed())
	return nil
}

// Get returns the current settings of `v`.
func Get(v *viper.Viper) Config {
	cfg := Config{
		Vitis:           v.GetString(Vitis),
		Xsdb:            v.GetString(Xsdb),
		Git:             v.GetString(Git),
		VCS:             v.GetString(VCS),
		HwServerURL:     v.GetString(HwServerURL),
		CableName:       v.GetString(CableName),
		CableSerial:     v.GetString(CableSerial),
		Processor:       v.GetString(Processor),
		CPU:             v.GetString(CPU),
		OS:              v.GetString(OS),
		TargetTimeout:   v.GetDuration(TargetTimeout),
		TargetInterval:  v.GetDuration(TargetInterval),
		MetadataTimeout: v.GetDuration(MetadataTimeout),
		RunFor:          v.GetDuration(RunFor),
		SignKey:         v.GetString(SignKey),
		SignPassphrase:  v.GetString(SignPassphrase),
	}
	if log.Verbose {
		logSettings(v)
	}
	return cfg
}

var secretKeys = map[string]bool{SignPassphrase: true}

// Settings returns every setting of `v` ordered by key. Secrets that are set are redacted.
func Settings(v *viper.Viper) ([]util.OrderedMapEntry[string, string], error) {
	settings := util.NewOrderedMap[string, string]()
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if secretKeys[key] && value != "" {
			value = "<redacted>"
		}
		if err := settings.Insert(key, value); err != nil {
			return nil, err
		}
	}
	return settings.Entries(), nil
}

func logSettings(v *viper.Viper) {
	settings, err := Settings(v)
	if err != nil {
		log.Warning("Failed to list the configuration: %s.\n", err)
		return
	}
	log.Debug("Running with configuration:\n")
	log.IndentationLevel++
	defer func() { log.IndentationLevel-- }()
	for _, setting := range settings {
		log.Debug("%s: %s\n", setting.Key, setting.Value)
	}
}
