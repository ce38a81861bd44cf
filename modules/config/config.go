// Package config loads YAML configuration files into caller supplied structs.
package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// FromYamlFile decodes the YAML document at path into out. Fields missing from
// the document keep the values out already holds, so callers can pass a struct
// pre-filled with defaults. Unknown keys are rejected.
func FromYamlFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}
