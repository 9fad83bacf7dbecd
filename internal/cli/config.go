package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RedisConfig holds the optional Redis checkpoint store settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config represents the structure of arbor.yaml.
type Config struct {
	// Template is the project template directory seeding every run.
	Template string `yaml:"template"`

	// Prompts is an optional loam repository of stage playbooks.
	Prompts string `yaml:"prompts"`

	// Model overrides the default gateway model.
	Model string `yaml:"model"`

	BeamWidth int `yaml:"beam_width"`
	MaxDepth  int `yaml:"max_depth"`
	MaxTokens int `yaml:"max_tokens"`

	Redis RedisConfig `yaml:"redis"`
}

// LoadConfig reads an arbor.yaml. A missing file is not an error; it
// returns the zero config so flags and defaults take over.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
