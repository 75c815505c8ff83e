package buildinfo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/daedaleanai/vbt/util"
)

// ManifestSuffix is appended to the executable path to name its build manifest.
const ManifestSuffix = ".buildinfo.yaml"

// WriteManifest stores `r` as YAML in `path`.
func WriteManifest(path string, r Record) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode build info: %w", err)
	}
	if err := os.WriteFile(path, data, util.FileMode); err != nil {
		return fmt.Errorf("failed to write build manifest '%s': %w", path, err)
	}
	return nil
}

// ReadManifest loads a build manifest written by WriteManifest.
func ReadManifest(path string) (Record, error) {
	var r Record
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("failed to read build manifest '%s': %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		return r, fmt.Errorf("failed to decode build manifest '%s': %w", path, err)
	}
	return r, nil
}
