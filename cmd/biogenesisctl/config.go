package main

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the CLI configuration. Values load in two layers: embedded
// defaults first, then an optional user file that overrides only the fields
// it names.
type Config struct {
	Store        StoreConfig         `yaml:"store"`
	Dirs         DirsConfig          `yaml:"dirs"`
	Run          RunConfig           `yaml:"run"`
	Environments []EnvironmentConfig `yaml:"environments"`
}

type StoreConfig struct {
	Kind   string `yaml:"kind"`
	DBPath string `yaml:"db_path"`
}

type DirsConfig struct {
	Artifacts string `yaml:"artifacts"`
	Exports   string `yaml:"exports"`
}

type RunConfig struct {
	Environment    string   `yaml:"environment"`
	Population     int      `yaml:"population"`
	Generations    int      `yaml:"generations"`
	BroodSize      int      `yaml:"brood_size"`
	SequenceLength int      `yaml:"sequence_length"`
	Sexual         bool     `yaml:"sexual"`
	FitnessGoal    float64  `yaml:"fitness_goal"`
	Seed           int64    `yaml:"seed"`
	Loci           []string `yaml:"loci"`
}

// EnvironmentConfig is one named environment with its eco-factor targets.
type EnvironmentConfig struct {
	Name    string             `yaml:"name"`
	Factors map[string]float64 `yaml:"factors"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Run.Environment == "" {
		return fmt.Errorf("run.environment is required")
	}
	if c.Run.Population <= 0 {
		return fmt.Errorf("run.population must be > 0")
	}
	if c.Run.Generations <= 0 {
		return fmt.Errorf("run.generations must be > 0")
	}
	if c.Run.BroodSize <= 0 {
		return fmt.Errorf("run.brood_size must be > 0")
	}
	if c.Run.SequenceLength <= 0 {
		return fmt.Errorf("run.sequence_length must be > 0")
	}
	for i, env := range c.Environments {
		if env.Name == "" {
			return fmt.Errorf("environments[%d].name is required", i)
		}
		if len(env.Factors) == 0 {
			return fmt.Errorf("environments[%d] requires at least one factor", i)
		}
	}
	return nil
}
