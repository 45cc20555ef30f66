package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly requested configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load builds the configuration: defaults, then the YAML file, then environment
// overrides. An empty path means DefaultConfigPath, and a missing default file is
// not an error. A missing explicit path returns ErrConfigNotFound.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, ErrConfigNotFound) || explicit {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Marshal renders the configuration as YAML, with secrets masked.
func (c *Config) Marshal() ([]byte, error) {
	masked := *c
	masked.Gemini.APIKey = mask(c.Gemini.APIKey)
	masked.Cloud.RedisPassword = mask(c.Cloud.RedisPassword)
	masked.Cloud.DSN = mask(c.Cloud.DSN)
	masked.Notion.Token = mask(c.Notion.Token)
	return yaml.Marshal(&masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
