package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers accepted by LLM_PROVIDER and LLM_FALLBACK_PROVIDER.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// PersonaSeedSource is a seed file path or s3://bucket/key imported at
	// startup when the persona store is empty.
	PersonaSeedSource string

	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	HistoryCacheTTL time.Duration

	LLMProvider         string
	LLMFallbackProvider string
	DefaultModel        string
	FallbackModel       string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	GeminiAPIKey        string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	ScopeTimeout      time.Duration
	SnapshotTimeout   time.Duration
	GenerationTimeout time.Duration

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values
// win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		PersonaSeedSource: getEnv("PERSONA_SEED_SOURCE", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		HistoryCacheTTL: getEnvAsDuration("HISTORY_CACHE_TTL", 30*time.Minute),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderOpenAI))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		DefaultModel:        getEnv("DEFAULT_MODEL", "gpt-5-mini"),
		FallbackModel:       getEnv("FALLBACK_MODEL", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ScopeTimeout:      getEnvAsDuration("SCOPE_TIMEOUT", 10*time.Second),
		SnapshotTimeout:   getEnvAsDuration("SNAPSHOT_TIMEOUT", 15*time.Second),
		GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// Validate checks that the selected providers have what they need.
func (c *Config) Validate() error {
	var errs []error
	if err := c.checkProvider("LLM_PROVIDER", c.LLMProvider); err != nil {
		errs = append(errs, err)
	}
	if c.LLMFallbackProvider != "" {
		if c.LLMFallbackProvider == c.LLMProvider {
			errs = append(errs, fmt.Errorf("config: LLM_FALLBACK_PROVIDER must differ from LLM_PROVIDER"))
		} else if err := c.checkProvider("LLM_FALLBACK_PROVIDER", c.LLMFallbackProvider); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Config) checkProvider(key, provider string) error {
	switch provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: %s=%s requires OPENAI_API_KEY", key, provider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config: %s=%s requires GEMINI_API_KEY", key, provider)
		}
	case ProviderBedrock:
		if c.AWSRegion == "" {
			return fmt.Errorf("config: %s=%s requires AWS_REGION", key, provider)
		}
	default:
		return fmt.Errorf("config: unsupported %s %q", key, provider)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
