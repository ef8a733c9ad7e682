package config

import "fmt"

// Config represents the full application configuration.
type Config struct {
	Model         ModelConfig         `yaml:"model"`
	HTTP          HTTPConfig          `yaml:"http"`
	Server        ServerConfig        `yaml:"server"`
	Browser       BrowserConfig       `yaml:"browser"`
	CrossRef      CrossRefConfig      `yaml:"crossref"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ModelConfig configures the vision language model.
type ModelConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"` // OpenAI-compatible endpoint
	Timeout string `yaml:"timeout"`
}

// HTTPConfig holds retry settings for outbound model calls.
type HTTPConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BrowserConfig configures the headless-browser pool used by the credential
// and patent verifiers.
type BrowserConfig struct {
	Concurrency int    `yaml:"concurrency"`
	TaskTimeout string `yaml:"taskTimeout"`
}

// CrossRefConfig configures the bibliographic registry client.
type CrossRefConfig struct {
	UserAgent string `yaml:"userAgent"` // polite-pool contact header
	Timeout   string `yaml:"timeout"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"` // Redact API keys in logs
}

// Validate checks that the configuration is usable for serving.
func (c Config) Validate() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("model.apiKey 未设置，请在配置文件或环境变量中配置")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model 未设置")
	}
	return nil
}
