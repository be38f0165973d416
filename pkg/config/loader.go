package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a manifest file, applies defaults and validates the result.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = filepath.Dir(filename)

	return cfg, nil
}

// ParseConfig parses manifest bytes, applies defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var manifest ConfigManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if manifest.APIVersion != APIVersion {
		return nil, fmt.Errorf("unsupported apiVersion %q, expected %q", manifest.APIVersion, APIVersion)
	}
	if manifest.Kind != KindPromptFlowConfig {
		return nil, fmt.Errorf("unsupported kind %q, expected %q", manifest.Kind, KindPromptFlowConfig)
	}

	cfg := &manifest.Spec
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvePath resolves a possibly relative path against the config directory.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.ConfigDir == "" {
		return path
	}
	return filepath.Join(c.ConfigDir, path)
}
