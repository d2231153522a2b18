package config

import (
	"fmt"

	"github.com/yndnr/webstore-go/internal/infra/confloader"
)

// Load reads the configuration: defaults, then the YAML file at path (if
// any), then WEBSTORE_ environment variables, then overrides. Override
// keys use the dotted koanf form, e.g. "origin.data_dir". The result is
// verified.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg, _, err := LoadWithSources(path, overrides)
	return cfg, err
}

// LoadWithSources is Load that also reports which source set each key.
// Keys absent from the map hold their defaults.
func LoadWithSources(path string, overrides map[string]any) (*Config, map[string]string, error) {
	cfg := Default()

	l := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	if err := Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, l.Sources(), nil
}
