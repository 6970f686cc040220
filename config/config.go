package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai" // any OpenAI-compatible chat endpoint, including Ollama's /v1
	ProviderOllama = "ollama" // native Ollama /api/chat

	DefaultModel = "gpt-oss:120b"
)

// Config holds all configuration for the application.
// Mapstructure tags are used to map environment variables and config file keys.
type Config struct {
	// Server Configuration
	ServerAddress string `mapstructure:"SERVER_ADDRESS"` // e.g., ":8080"
	AppEnv        string `mapstructure:"APP_ENV"`        // "production" switches gin to release mode

	// LLM Provider Configuration
	LLMProvider string `mapstructure:"LLM_PROVIDER"` // "openai" or "ollama"
	LLMBaseURL  string `mapstructure:"LLM_BASE_URL"` // empty selects the provider default
	LLMAPIKey   string `mapstructure:"LLM_API_KEY"`
	LLMModel    string `mapstructure:"LLM_MODEL"`

	// Fallback credentials, kept for deployments that only export the vendor variable.
	OllamaAPIKey string `mapstructure:"OLLAMA_API_KEY"`
	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`

	// HTTP surface
	AllowedOrigins     string `mapstructure:"ALLOWED_ORIGINS"`       // comma separated, "*" for any
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"` // 0 disables the limiter

	// Logging
	LogFormat string `mapstructure:"LOG_FORMAT"` // "text" or "json"
	LogLevel  string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)     // Path to look for the config file in
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")

	setDefaults(v)
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info("config.yaml not found, relying solely on environment variables")
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Infof("Using configuration file: %s", v.ConfigFileUsed())
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LLM_PROVIDER", ProviderOpenAI)
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", DefaultModel)
	v.SetDefault("OLLAMA_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 0)
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) normalize() {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.LLMBaseURL = strings.TrimRight(strings.TrimSpace(c.LLMBaseURL), "/")
	if c.LLMAPIKey == "" {
		switch c.LLMProvider {
		case ProviderOllama:
			c.LLMAPIKey = c.OllamaAPIKey
		default:
			c.LLMAPIKey = firstNonEmpty(c.OllamaAPIKey, c.OpenAIAPIKey)
		}
	}
	if c.LLMModel == "" {
		c.LLMModel = DefaultModel
	}
}

// Validate reports configuration that would make the server unusable. A missing API key
// is not fatal here: the gateway reports it per request so local providers keep working.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (want %q or %q)", c.LLMProvider, ProviderOpenAI, ProviderOllama)
	}
	if c.ServerAddress == "" {
		return errors.New("SERVER_ADDRESS must not be empty")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY is not set; requests to hosted providers will be rejected")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS into a list, dropping blanks.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
