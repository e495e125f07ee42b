package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// config holds the session defaults an operator can set once in a YAML
// file instead of repeating as flags on every invocation.
type config struct {
	DPEpsilon        float64 `yaml:"dp_epsilon"`
	DPSeed           int64   `yaml:"dp_seed"`
	SnapshotPath     string  `yaml:"snapshot_path"`
	AutosaveInterval string  `yaml:"autosave_interval"`
}

func defaultConfig() config {
	return config{DPEpsilon: 1.0}
}

// loadConfig decodes a YAML config file over the defaults. An empty
// path is not an error; it just leaves the defaults in place.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
