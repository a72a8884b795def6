package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Snapshot       string   `yaml:"snapshot"`
	Rules          string   `yaml:"rules"`
	MaxDepth       int      `yaml:"max_depth"`
	PackageFilters []string `yaml:"package_filters"`
	Optimize       bool     `yaml:"optimize"`
	Parallel       bool     `yaml:"parallel"`
	Report         string   `yaml:"report"`
	DotFile        string   `yaml:"dot_file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	return cfg, err
}

func Default() *Config {
	return &Config{
		MaxDepth: 10,
		Parallel: true,
	}
}
