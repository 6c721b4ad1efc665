package main

import (
	"fmt"
	"os"

	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/pkg/aidk"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape aidkc loads via --config, serialized with
// gopkg.in/yaml.v3.
type fileConfig struct {
	Dev                  bool   `yaml:"dev"`
	MaxCompileIterations int    `yaml:"max_compile_iterations"`
	AsyncEffects         *bool  `yaml:"async_effects"`
	Goal                 string `yaml:"goal"`
	Ticks                int    `yaml:"ticks"`
}

func loadFileConfig(path string) (fileConfig, error) {
	fc := fileConfig{Goal: scenario.DefaultConfig().Goal, Ticks: 3}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc, nil
}

func (fc fileConfig) toAidkConfig() aidk.Config {
	cfg := aidk.DefaultConfig()
	cfg.Dev = fc.Dev
	if fc.MaxCompileIterations > 0 {
		cfg.MaxCompileIterations = fc.MaxCompileIterations
	}
	if fc.AsyncEffects != nil {
		cfg.AsyncEffects = *fc.AsyncEffects
	}
	return cfg
}
