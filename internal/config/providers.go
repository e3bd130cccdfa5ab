package config

import "time"

type ProvidersConfig struct {
	Provider ProviderConfig `yaml:"provider"`
}

// ProviderConfig describes the single upstream completion provider. The API
// key is sourced from the environment via ${VAR} expansion; a literal key in
// the file is a deployment mistake.
type ProviderConfig struct {
	Type        string            `yaml:"type"`
	BaseURL     string            `yaml:"base_url"`
	APIKey      string            `yaml:"api_key"`
	APIVersion  string            `yaml:"api_version,omitempty"`
	Model       string            `yaml:"model"`
	MaxTokens   int               `yaml:"max_tokens"`
	Temperature float64           `yaml:"temperature"`
	Timeout     time.Duration     `yaml:"timeout"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

func DefaultProvidersConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Provider: ProviderConfig{
			Type:        "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
	}
}
