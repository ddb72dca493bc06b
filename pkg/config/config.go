package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Completion    CompletionConfig    `yaml:"completion"`
	Research      ResearchConfig      `yaml:"research"`
	Email         EmailConfig         `yaml:"email"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// CompletionConfig contains completion-service configuration
type CompletionConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// ResearchConfig contains pipeline configuration
type ResearchConfig struct {
	DefaultSearches  int    `yaml:"default_searches"`
	AuditTimeout     string `yaml:"audit_timeout"`
	MinSummaryLength int    `yaml:"min_summary_length"`
	SendEmail        bool   `yaml:"send_email"`
}

// EmailConfig contains email delivery configuration. Keys are normally
// supplied via MAILJET_API_KEY / MAILJET_API_SECRET.
type EmailConfig struct {
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	APISecret   string `yaml:"api_secret,omitempty"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
	ToAddress   string `yaml:"to_address"`
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Output string `yaml:"output"` // "stdout", "stderr"
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configuration from a file or returns default config
func LoadOrDefault(path string) *Config {
	config, err := Load(path)
	if err != nil {
		config = Default()
		config.overrideFromEnv()
	}
	return config
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     "2m",
		},
		Research: ResearchConfig{
			DefaultSearches:  3,
			AuditTimeout:     "60s",
			MinSummaryLength: 50,
			SendEmail:        false,
		},
		Email: EmailConfig{
			BaseURL:  "https://api.mailjet.com",
			FromName: "Deep Research",
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      true,
				Endpoint:     "localhost:4317",
				SamplingRate: 1.0,
				Insecure:     true,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    2223,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Output: "stdout",
			},
		},
	}
}

// applyDefaults applies default values to missing fields
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = defaults.Completion.BaseURL
	}
	if c.Completion.Model == "" {
		c.Completion.Model = defaults.Completion.Model
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = defaults.Completion.Temperature
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = defaults.Completion.MaxTokens
	}
	if c.Completion.Timeout == "" {
		c.Completion.Timeout = defaults.Completion.Timeout
	}

	if c.Research.DefaultSearches == 0 {
		c.Research.DefaultSearches = defaults.Research.DefaultSearches
	}
	if c.Research.AuditTimeout == "" {
		c.Research.AuditTimeout = defaults.Research.AuditTimeout
	}
	if c.Research.MinSummaryLength == 0 {
		c.Research.MinSummaryLength = defaults.Research.MinSummaryLength
	}

	if c.Email.BaseURL == "" {
		c.Email.BaseURL = defaults.Email.BaseURL
	}
	if c.Email.FromName == "" {
		c.Email.FromName = defaults.Email.FromName
	}
}

// overrideFromEnv overrides configuration from environment variables
func (c *Config) overrideFromEnv() {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		c.Completion.BaseURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Completion.Model = model
	}
	if key := os.Getenv("MAILJET_API_KEY"); key != "" {
		c.Email.APIKey = key
	}
	if secret := os.Getenv("MAILJET_API_SECRET"); secret != "" {
		c.Email.APISecret = secret
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Observability.Tracing.Endpoint = endpoint
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Completion.BaseURL == "" {
		return fmt.Errorf("completion base_url is required")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	if c.Research.DefaultSearches < 1 || c.Research.DefaultSearches > 5 {
		return fmt.Errorf("research default_searches must be between 1 and 5")
	}
	if _, err := time.ParseDuration(c.Research.AuditTimeout); err != nil {
		return fmt.Errorf("invalid audit_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Completion.Timeout); err != nil {
		return fmt.Errorf("invalid completion timeout: %w", err)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AuditTimeout returns the parsed audit timeout budget.
func (c *Config) AuditTimeout() time.Duration {
	d, err := time.ParseDuration(c.Research.AuditTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
