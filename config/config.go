package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Reasoner ReasonerConfig `yaml:"reasoner"`
	CaseLens CaseLensConfig `yaml:"caselens"`
}

type DatabaseConfig struct {
	Path     string `yaml:"path"`
	SeedPath string `yaml:"seed_path"`
}

// Redis is optional: an empty host disables snapshot caching and
// reasoner rate limiting.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ReasonerConfig struct {
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type CaseLensConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	MaxIterations    int `yaml:"max_iterations"`
	ResultCharBudget int `yaml:"result_char_budget"`

	SnapshotTTLSeconds int `yaml:"snapshot_ttl_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
