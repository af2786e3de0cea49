package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads path (a YAML file), expands environment variables, merges
// it over Config defaults, and validates the result. path may not
// exist — in that case defaults plus environment variables alone back
// the configuration, a tolerant "file optional, env required" loading
// posture for deployments that configure purely through the
// environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			expanded := ExpandEnv(raw)
			var loaded Config
			if err := yaml.Unmarshal(expanded, &loaded); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := mergo.Merge(cfg, loaded, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("config: merge %s: %w", path, err)
			}
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
