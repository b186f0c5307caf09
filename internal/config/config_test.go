package config

import (
	"slices"
	"testing"
	"time"

	"github.com/drpaneas/devtracker/internal/llm"
)

func validConfig() Config {
	return Config{
		Port:                8000,
		Provider:            llm.ProviderOpenAI,
		OpenAIAPIKey:        "sk-fake",
		GatewayTimeout:      time.Minute,
		WorkerPoolSize:      5,
		CacheSize:           128,
		MaxRequestBodyBytes: 1 << 20,
		LogFormat:           "text",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid openai config", mutate: func(*Config) {}},
		{
			name: "valid anthropic config",
			mutate: func(c *Config) {
				c.Provider = llm.ProviderAnthropic
				c.AnthropicAPIKey = "sk-ant-fake"
			},
		},
		{
			name: "valid gemini config",
			mutate: func(c *Config) {
				c.Provider = llm.ProviderGemini
				c.GeminiAPIKey = "gm-fake"
			},
		},
		{
			name: "valid ollama config without api key",
			mutate: func(c *Config) {
				c.Provider = llm.ProviderOllama
				c.OpenAIAPIKey = ""
			},
		},
		{
			name: "none provider needs no key",
			mutate: func(c *Config) {
				c.Provider = llm.ProviderNone
				c.OpenAIAPIKey = ""
			},
		},
		{
			name:   "missing oauth credentials are allowed",
			mutate: func(c *Config) { c.GitHubClientID, c.GitHubClientSecret = "", "" },
		},
		{name: "invalid provider", mutate: func(c *Config) { c.Provider = "g4f" }, wantErr: true},
		{name: "openai missing api key", mutate: func(c *Config) { c.OpenAIAPIKey = "" }, wantErr: true},
		{
			name: "anthropic key does not satisfy gemini",
			mutate: func(c *Config) {
				c.Provider = llm.ProviderGemini
				c.AnthropicAPIKey = "sk-ant-fake"
			},
			wantErr: true,
		},
		{name: "pool size zero", mutate: func(c *Config) { c.WorkerPoolSize = 0 }, wantErr: true},
		{name: "zero gateway timeout", mutate: func(c *Config) { c.GatewayTimeout = 0 }, wantErr: true},
		{name: "negative cache size", mutate: func(c *Config) { c.CacheSize = -1 }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "zero body limit", mutate: func(c *Config) { c.MaxRequestBodyBytes = 0 }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GATEWAY_TIMEOUT", "15s")
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")
	t.Setenv("GITHUB_RESOLVE_LOGIN", "false")
	t.Setenv("GITHUB_ALLOWED_REDIRECTS", "devtracker://, ,exp://192.168.1.5:8081")
	for _, key := range []string{"LOG_FORMAT", "COMPLETION_CACHE_SIZE", "MAX_REQUEST_BODY_BYTES", "GITHUB_CALLBACK_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Provider != llm.ProviderAnthropic {
		t.Errorf("Provider = %q, want anthropic", cfg.Provider)
	}
	if cfg.GatewayTimeout != 15*time.Second {
		t.Errorf("GatewayTimeout = %v, want 15s", cfg.GatewayTimeout)
	}
	if cfg.WorkerPoolSize != 5 {
		t.Errorf("WorkerPoolSize = %d, want default 5 for unparsable value", cfg.WorkerPoolSize)
	}
	if cfg.ResolveLogin {
		t.Error("ResolveLogin should be false")
	}
	if want := []string{"devtracker://", "exp://192.168.1.5:8081"}; !slices.Equal(cfg.AllowedRedirects, want) {
		t.Errorf("AllowedRedirects = %q, want %q", cfg.AllowedRedirects, want)
	}
	if cfg.GitHubCallbackURL != "http://localhost:8000/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAIBaseURL = "http://proxy.local/v1"
	pc := cfg.ProviderConfig()
	if pc.Model != "gpt-4o" || pc.APIKey != "sk-fake" || pc.BaseURL != "http://proxy.local/v1" {
		t.Errorf("ProviderConfig() = %+v", pc)
	}

	cfg.Provider = llm.ProviderOllama
	cfg.Model = "qwen2.5"
	pc = cfg.ProviderConfig()
	if pc.Model != "qwen2.5" || pc.APIKey != "" || pc.BaseURL != "" {
		t.Errorf("ProviderConfig() = %+v", pc)
	}
}

func TestDefaultModel(t *testing.T) {
	tests := []struct {
		provider llm.ProviderName
		want     string
	}{
		{llm.ProviderOpenAI, "gpt-4o"},
		{llm.ProviderAnthropic, "claude-sonnet-4-5"},
		{llm.ProviderGemini, "gemini-2.5-flash"},
		{llm.ProviderOllama, "llama3"},
		{llm.ProviderNone, ""},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			got := DefaultModel(tt.provider)
			if got != tt.want {
				t.Errorf("DefaultModel(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}
