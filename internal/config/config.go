// Package config loads devtracker's runtime configuration from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drpaneas/devtracker/internal/llm"
)

// Config holds all runtime configuration for devtracker.
type Config struct {
	// Server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64

	// LLM settings.
	Provider        llm.ProviderName
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string
	GatewayTimeout  time.Duration
	WorkerPoolSize  int
	CacheSize       int // 0 disables the completion cache
	CacheTTL        time.Duration

	// GitHub settings.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	GitHubOAuthURL     string
	GitHubAPIURL       string
	GitHubToken        string   // used by the analyze command to fetch activity
	ResolveLogin       bool
	AllowedRedirects   []string // URL prefixes the OAuth state may start with

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	LogLevel  string
	LogFormat string // "text" or "json"
	Verbose   bool
}

// Load reads configuration from environment variables with defaults.
// It does not validate; call Validate after applying flag overrides.
func Load() Config {
	return Config{
		Port:                envInt("PORT", 8000),
		ReadTimeout:         envDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("WRITE_TIMEOUT", 90*time.Second),
		MaxRequestBodyBytes: int64(envInt("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		Provider:        llm.ProviderName(strings.ToLower(envStr("LLM_PROVIDER", string(llm.ProviderOpenAI)))),
		Model:           envStr("LLM_MODEL", ""),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   envStr("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		OllamaHost:      envStr("OLLAMA_HOST", "http://localhost:11434"),
		GatewayTimeout:  envDuration("GATEWAY_TIMEOUT", 60*time.Second),
		WorkerPoolSize:  envInt("WORKER_POOL_SIZE", 5),
		CacheSize:       envInt("COMPLETION_CACHE_SIZE", 128),
		CacheTTL:        envDuration("COMPLETION_CACHE_TTL", 10*time.Minute),

		GitHubClientID:     envStr("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: envStr("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  envStr("GITHUB_CALLBACK_URL", "http://localhost:8000/auth/github/callback"),
		GitHubOAuthURL:     envStr("GITHUB_OAUTH_URL", "https://github.com"),
		GitHubAPIURL:       envStr("GITHUB_API_URL", "https://api.github.com/"),
		GitHubToken:        envStr("GITHUB_TOKEN", ""),
		ResolveLogin:       envBool("GITHUB_RESOLVE_LOGIN", true),
		AllowedRedirects:   envList("GITHUB_ALLOWED_REDIRECTS"),

		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: envBool("OTEL_INSECURE", false),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "devtracker"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),
	}
}

// Validate checks that all required fields are set and consistent.
// Missing OAuth credentials are not an error here; the OAuth endpoints
// report them per request.
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGemini, llm.ProviderOllama, llm.ProviderNone:
	default:
		return fmt.Errorf("unsupported LLM provider %q: must be openai, anthropic, gemini, ollama, or none", c.Provider)
	}
	if c.apiKey() == "" && c.Provider != llm.ProviderOllama && c.Provider != llm.ProviderNone {
		return fmt.Errorf("%s requires an API key (set %s)", c.Provider, envKeyForProvider(c.Provider))
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("COMPLETION_CACHE_SIZE must not be negative")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ProviderConfig returns the llm settings for the configured provider,
// filling in the default model when none is set.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	model := c.Model
	if model == "" {
		model = DefaultModel(c.Provider)
	}
	pc := llm.ProviderConfig{
		Name:       c.Provider,
		APIKey:     c.apiKey(),
		Model:      model,
		OllamaHost: c.OllamaHost,
	}
	if c.Provider == llm.ProviderOpenAI {
		pc.BaseURL = c.OpenAIBaseURL
	}
	return pc
}

func (c *Config) apiKey() string {
	switch c.Provider {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderAnthropic:
		return c.AnthropicAPIKey
	case llm.ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// DefaultModel returns the default model name for the given provider.
func DefaultModel(provider llm.ProviderName) string {
	switch provider {
	case llm.ProviderOpenAI:
		return "gpt-4o"
	case llm.ProviderAnthropic:
		return "claude-sonnet-4-5"
	case llm.ProviderGemini:
		return "gemini-2.5-flash"
	case llm.ProviderOllama:
		return "llama3"
	default:
		return ""
	}
}

func envKeyForProvider(provider llm.ProviderName) string {
	switch provider {
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
