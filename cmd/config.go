package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/token-shaper/sim"
)

// LoadPreset decodes the YAML preset at path over base. Keys absent from the
// file keep base's values. Uses strict field checking: typos are errors.
func LoadPreset(path string, base sim.Config) (sim.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading preset: %w", err)
	}
	cfg := base
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return base, fmt.Errorf("parsing preset %s: %w", path, err)
	}
	return cfg, nil
}
