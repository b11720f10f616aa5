// Package config loads the service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Yahoo   YahooConfig   `yaml:"yahoo"`
}

// ServerConfig holds the listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ModelConfig selects and configures the LLM provider.
type ModelConfig struct {
	Provider        string `yaml:"provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	Name            string `yaml:"name"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxModelCalls int `yaml:"max_model_calls"`
}

// LoggingConfig configures process-wide logging.
type LoggingConfig struct {
	Dir    string `yaml:"dir"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures the span exporter.
type TracingConfig struct {
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// YahooConfig overrides the market data endpoints.
type YahooConfig struct {
	QueryURL  string `yaml:"query_url"`
	SearchURL string `yaml:"search_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Model: ModelConfig{
			Provider:       ProviderOpenAI,
			OpenAIBaseURL:  "https://api.thesys.dev/v1/embed/",
			Name:           "c1/openai/gpt-5/v-20250930",
			AnthropicModel: "claude-sonnet-4-20250514",
		},
		Agent:   AgentConfig{MaxModelCalls: 25},
		Logging: LoggingConfig{Dir: "logs", Level: "debug", Format: "text"},
		Tracing: TracingConfig{Exporter: "none", Endpoint: "localhost:4317", ServiceName: "marketinsight"},
		Yahoo: YahooConfig{
			QueryURL:  "https://query2.finance.yahoo.com",
			SearchURL: "https://query2.finance.yahoo.com/v1/finance/search",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Server.Host)
	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}

	str("MODEL_PROVIDER", &c.Model.Provider)
	str("OPENAI_API_KEY", &c.Model.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &c.Model.OpenAIBaseURL)
	str("MODEL_NAME", &c.Model.Name)
	str("ANTHROPIC_API_KEY", &c.Model.AnthropicAPIKey)
	str("ANTHROPIC_MODEL", &c.Model.AnthropicModel)

	if err := num("MAX_MODEL_CALLS", &c.Agent.MaxModelCalls); err != nil {
		return err
	}

	str("LOG_DIR", &c.Logging.Dir)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	str("OTEL_TRACES_EXPORTER", &c.Tracing.Exporter)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	str("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)

	str("YAHOO_QUERY_URL", &c.Yahoo.QueryURL)
	str("YAHOO_SEARCH_URL", &c.Yahoo.SearchURL)

	c.Model.Provider = strings.ToLower(c.Model.Provider)
	c.Tracing.Exporter = strings.ToLower(c.Tracing.Exporter)

	return nil
}

// Validate reports configuration errors, including missing credentials for
// the selected model provider.
func (c Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderOpenAI:
		if c.Model.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
		if c.Model.Name == "" {
			errs = append(errs, errors.New("MODEL_NAME is required"))
		}
	case ProviderAnthropic:
		if c.Model.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q", c.Model.Provider))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}

	if c.Agent.MaxModelCalls < 0 {
		errs = append(errs, errors.New("MAX_MODEL_CALLS must not be negative"))
	}

	switch c.Tracing.Exporter {
	case "otlp", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.Tracing.Exporter))
	}

	return errors.Join(errs...)
}
