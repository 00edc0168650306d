package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a manifest from a YAML (or YAML-compatible JSON) file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %q: %w", path, err)
	}

	var man Manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parse %q: %w", path, err)
	}
	if man.Spec.TaskType == "" {
		return Manifest{}, fmt.Errorf("manifest: %q: spec.taskType is required", path)
	}
	if man.Spec.Executable == "" {
		return Manifest{}, fmt.Errorf("manifest: %q: spec.executable is required", path)
	}
	return man, nil
}
