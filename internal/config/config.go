package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DemoAPIKey is the sentinel credential that forces demo mode on the
// primary provider even when the env var is set.
const DemoAPIKey = "demo-key-for-testing"

// Provider is the immutable descriptor for one backend kind. Loaded once at
// process start and treated as read-only afterwards.
type Provider struct {
	Name         string
	Kind         string
	BaseURL      string
	APIKey       string
	Region       string
	Models       []string
	DefaultModel string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

// Configured reports whether the descriptor has a usable credential.
// Bedrock authenticates through ambient AWS credentials, so a configured
// region is its credential equivalent.
func (p Provider) Configured() bool {
	if p.Kind == "bedrock" {
		return p.Region != ""
	}
	return p.APIKey != ""
}

// DemoMode reports whether the descriptor should be served by the canned
// demo responder instead of a network adapter.
func (p Provider) DemoMode() bool {
	return p.Kind == "demo" || p.APIKey == DemoAPIKey || !p.Configured()
}

type Fallback struct {
	Enabled   bool
	Providers []string
}

type RateLimit struct {
	Enabled              bool
	MaxRequestsPerMinute int
	MaxRequestsPerHour   int
}

type Caching struct {
	Enabled bool
	TTL     time.Duration
}

type Context struct {
	MaxLength int
	FilePath  string
}

type Config struct {
	Addr        string
	LogLevel    string
	Environment string

	Provider  string
	Providers map[string]Provider
	Fallback  Fallback
	RateLimit RateLimit
	Caching   Caching
	Context   Context

	RedisURL       string
	DatabaseURL    string
	AWSRegion      string
	SNSTopicArn    string
	SQSQueueURL    string
	OTLPEndpoint   string
	AdminTokenHash string

	ShutdownTimeout time.Duration
}

// Load reads the full gateway configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:        getEnv("ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),

		Provider: getEnv("AI_PROVIDER", "openai"),
		Providers: map[string]Provider{
			"openai": {
				Name:         "OpenAI",
				Kind:         "openai",
				BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:       getEnv("OPENAI_API_KEY", ""),
				Models:       []string{"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo"},
				DefaultModel: getEnv("OPENAI_MODEL", "gpt-4"),
				MaxTokens:    getIntEnv("OPENAI_MAX_TOKENS", 2000),
				Temperature:  getFloatEnv("OPENAI_TEMPERATURE", 0.7),
				Timeout:      getDurationEnv("OPENAI_TIMEOUT", 30*time.Second),
			},
			"azure-openai": {
				Name:         "Azure OpenAI",
				Kind:         "azure-openai",
				BaseURL:      getEnv("AZURE_OPENAI_ENDPOINT", ""),
				APIKey:       getEnv("AZURE_OPENAI_API_KEY", ""),
				Models:       []string{"gpt-4", "gpt-35-turbo"},
				DefaultModel: getEnv("AZURE_OPENAI_MODEL", "gpt-4"),
				MaxTokens:    getIntEnv("AZURE_OPENAI_MAX_TOKENS", 2000),
				Temperature:  getFloatEnv("AZURE_OPENAI_TEMPERATURE", 0.7),
				Timeout:      getDurationEnv("AZURE_OPENAI_TIMEOUT", 30*time.Second),
			},
			"anthropic": {
				Name:         "Anthropic",
				Kind:         "anthropic",
				BaseURL:      getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
				APIKey:       getEnv("ANTHROPIC_API_KEY", ""),
				Models:       []string{"claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
				DefaultModel: getEnv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
				MaxTokens:    getIntEnv("ANTHROPIC_MAX_TOKENS", 2000),
				Temperature:  getFloatEnv("ANTHROPIC_TEMPERATURE", 0.7),
				Timeout:      getDurationEnv("ANTHROPIC_TIMEOUT", 30*time.Second),
			},
			"bedrock": {
				Name:         "Amazon Bedrock",
				Kind:         "bedrock",
				Region:       getEnv("BEDROCK_REGION", getEnv("AWS_REGION", "")),
				Models:       []string{"anthropic.claude-3-sonnet-20240229-v1:0", "anthropic.claude-3-haiku-20240307-v1:0"},
				DefaultModel: getEnv("BEDROCK_MODEL", "anthropic.claude-3-sonnet-20240229-v1:0"),
				MaxTokens:    getIntEnv("BEDROCK_MAX_TOKENS", 2000),
				Temperature:  getFloatEnv("BEDROCK_TEMPERATURE", 0.7),
				Timeout:      getDurationEnv("BEDROCK_TIMEOUT", 30*time.Second),
			},
		},

		Fallback: Fallback{
			Enabled:   getEnv("AI_FALLBACK_ENABLED", "false") == "true",
			Providers: splitList(getEnv("AI_FALLBACK_PROVIDERS", "openai")),
		},
		RateLimit: RateLimit{
			Enabled:              getEnv("AI_RATE_LIMITING_ENABLED", "true") != "false",
			MaxRequestsPerMinute: getIntEnv("AI_MAX_REQUESTS_PER_MINUTE", 20),
			MaxRequestsPerHour:   getIntEnv("AI_MAX_REQUESTS_PER_HOUR", 100),
		},
		Caching: Caching{
			Enabled: getEnv("AI_CACHING_ENABLED", "false") == "true",
			TTL:     time.Duration(getIntEnv("AI_CACHE_TTL_MINUTES", 10)) * time.Minute,
		},
		Context: Context{
			MaxLength: getIntEnv("AI_CONTEXT_MAX_LENGTH", 8000),
			FilePath:  getEnv("AI_CONTEXT_FILE_PATH", "context/prompt-context.txt"),
		},

		RedisURL:       getEnv("REDIS_URL", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AWSRegion:      getEnv("AWS_REGION", ""),
		SNSTopicArn:    getEnv("SNS_TOPIC_ARN", ""),
		SQSQueueURL:    getEnv("SQS_QUEUE_URL", ""),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// Primary returns the descriptor for the configured primary provider kind.
func (c *Config) Primary() (Provider, bool) {
	if c.Provider == "demo" {
		return Provider{Name: "Demo", Kind: "demo"}, true
	}
	p, ok := c.Providers[c.Provider]
	return p, ok
}

// Production reports whether validation failures should be fatal.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Validate checks the loaded configuration and returns every problem found.
// Demo mode is always valid: it needs no credential.
func (c *Config) Validate() []error {
	var errs []error

	primary, ok := c.Primary()
	if !ok {
		return []error{fmt.Errorf("unsupported provider: %s", c.Provider)}
	}
	if primary.Kind == "demo" || primary.APIKey == DemoAPIKey {
		return errs
	}

	if !primary.Configured() {
		errs = append(errs, fmt.Errorf("API key is required for primary provider: %s", c.Provider))
	}
	if primary.BaseURL == "" && primary.Kind != "bedrock" {
		errs = append(errs, fmt.Errorf("base URL is required for primary provider: %s", c.Provider))
	}
	if primary.DefaultModel == "" {
		errs = append(errs, fmt.Errorf("default model is required for primary provider: %s", c.Provider))
	}
	if primary.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be greater than 0"))
	}
	if primary.Temperature < 0 || primary.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2"))
	}
	if primary.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be greater than 0"))
	}

	if c.Fallback.Enabled {
		for _, kind := range c.Fallback.Providers {
			if kind == c.Provider {
				continue
			}
			p, ok := c.Providers[kind]
			if !ok {
				errs = append(errs, fmt.Errorf("unknown fallback provider: %s", kind))
				continue
			}
			if !p.Configured() {
				errs = append(errs, fmt.Errorf("API key is required for fallback provider: %s", kind))
			}
		}
	}

	return errs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
