// Package config provides configuration loading for the gateway.
//
// Configuration comes from a YAML file with ${ENV} expansion, overlaid by a
// small set of well-known environment variables (OPENAI_API_KEY, SEARXNG_URL,
// PROXY_URL) so the gateway can run with no config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "15s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all configuration for the gateway process.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Completion CompletionConfig `yaml:"completion"`
	Search     SearchConfig     `yaml:"search"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// ProxyConfig holds the anonymizing proxy endpoint. All aggregator traffic
// routes through this; there is no direct-route fallback.
type ProxyConfig struct {
	// URL is the proxy endpoint, socks5://host:port or http://host:port.
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// AggregatorConfig holds the metasearch backend settings.
type AggregatorConfig struct {
	URL string `yaml:"url"`
}

// CompletionConfig holds the completion service settings.
type CompletionConfig struct {
	BaseURL          string   `yaml:"base_url"`
	APIKey           string   `yaml:"api_key"`
	Model            string   `yaml:"model"`
	Timeout          Duration `yaml:"timeout"`
	MaxSummaryTokens int      `yaml:"max_summary_tokens"`
	MaxReplyTokens   int      `yaml:"max_reply_tokens"`
	MaxPromptTokens  int      `yaml:"max_prompt_tokens"`
	Temperature      float64  `yaml:"temperature"`
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	DefaultCount       int `yaml:"default_count"`
	SummarySourceLimit int `yaml:"summary_source_limit"`
}

// SessionsConfig holds conversation session settings.
type SessionsConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads and parses the config file at path, expands ${ENV} references,
// applies env overrides and defaults. An empty path yields a default config.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		expanded := os.Expand(string(data), func(key string) string {
			return os.Getenv(key)
		})
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies the well-known environment variables on top of
// whatever the file provided.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("SEARXNG_URL"); v != "" {
		cfg.Aggregator.URL = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.Proxy.URL = v
	}
}

// ApplyDefaults fills zero-valued fields with defaults from defaults.go.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(DefaultServerReadTimeout)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(DefaultServerWriteTimeout)
	}
	if cfg.Proxy.Timeout == 0 {
		cfg.Proxy.Timeout = Duration(DefaultProxyTimeout)
	}
	if cfg.Aggregator.URL == "" {
		cfg.Aggregator.URL = DefaultAggregatorURL
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = DefaultCompletionModel
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = Duration(DefaultCompletionTimeout)
	}
	if cfg.Completion.MaxSummaryTokens == 0 {
		cfg.Completion.MaxSummaryTokens = DefaultMaxSummaryTokens
	}
	if cfg.Completion.MaxReplyTokens == 0 {
		cfg.Completion.MaxReplyTokens = DefaultMaxReplyTokens
	}
	if cfg.Completion.MaxPromptTokens == 0 {
		cfg.Completion.MaxPromptTokens = DefaultMaxPromptTokens
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = DefaultTemperature
	}
	if cfg.Search.DefaultCount == 0 {
		cfg.Search.DefaultCount = DefaultResultCount
	}
	if cfg.Search.SummarySourceLimit == 0 {
		cfg.Search.SummarySourceLimit = DefaultSummarySourceLimit
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = Duration(DefaultSessionTTL)
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = Duration(DefaultSessionSweepInterval)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Proxy.URL == "" {
		return fmt.Errorf("proxy.url is required: the gateway never contacts the aggregator directly")
	}
	if c.Completion.APIKey == "" {
		return fmt.Errorf("completion.api_key is required (or set OPENAI_API_KEY)")
	}
	if c.Search.DefaultCount < MinResultCount || c.Search.DefaultCount > MaxResultCount {
		return fmt.Errorf("search.default_count must be in [%d,%d]", MinResultCount, MaxResultCount)
	}
	return nil
}
