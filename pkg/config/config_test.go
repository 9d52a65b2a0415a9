package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  providers:
    - kind: groq
      model: "openai/gpt-oss-120b"
      api_key: "gsk-test"
    - kind: ollama
      model: "mistral"
      base_url: "http://localhost:11434"
  max_concurrency: 3
  rate_limit_margin: 2s

store:
  backend: rest
  url: "https://project.supabase.co"
  key: "service-key"
  submit_chunk_size: 10

scraper:
  rate_limit: 1.5
  timeout: 10s

pipeline:
  market: sgx
  batch_size: 20
  min_score: 70
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.Len(t, config.LLM.Providers, 2)
	assert.Equal(t, groqBaseURL, config.LLM.Providers[0].BaseURL)
	assert.Equal(t, "gsk-test", config.LLM.Providers[0].APIKey)
	assert.Equal(t, 0.15, config.LLM.Providers[0].Temperature)
	assert.Equal(t, "groq/openai/gpt-oss-120b", config.LLM.Providers[0].Name)
	assert.Equal(t, 3, config.LLM.MaxConcurrency)
	assert.Equal(t, 2*time.Second, config.LLM.RateLimitMargin)
	assert.Equal(t, 10, config.Store.SubmitChunkSize)
	assert.Equal(t, 10*time.Second, config.Scraper.Timeout)
	assert.Equal(t, "sgx_news", config.Pipeline.Table)
	assert.Equal(t, 20, config.Pipeline.BatchSize)
	assert.Equal(t, 70, *config.Pipeline.MinScore)
	assert.Equal(t, 4, config.Pipeline.Workers)
	assert.Empty(t, config.Validate())
}

func TestDefaultProviders(t *testing.T) {
	t.Setenv("GROQ_API_KEY1", "k1")
	t.Setenv("GROQ_API_KEY2", "k2")
	t.Setenv("GROQ_API_KEY3", "k3")
	t.Setenv("GROQ_API_KEY4", "k4")
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("OPENAI_API_KEY", "o")
	t.Setenv("ANTHROPIC_API_KEY", "")

	config := &Config{}
	applyDefaults(config)

	providers := config.LLM.Providers
	// four models per groq key, plus gemini and openai
	require.Len(t, providers, 18)
	assert.Equal(t, "groq/openai/gpt-oss-120b@GROQ_API_KEY1", providers[0].Name)
	assert.Equal(t, "k2", providers[1].APIKey)
	assert.Equal(t, ProviderGemini, providers[4].Kind)
	assert.Equal(t, 0.3, providers[4].Temperature)
	assert.Equal(t, ProviderOpenAI, providers[len(providers)-1].Kind)
}

func TestLoadConfigMinScore(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		want     int
	}{
		{name: "zero is kept", pipeline: "pipeline:\n  min_score: 0\n", want: 0},
		{name: "absent defaults", pipeline: "pipeline:\n  batch_size: 20\n", want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.pipeline), 0644))

			config, err := LoadConfig(configPath)
			require.NoError(t, err)
			require.NotNil(t, config.Pipeline.MinScore)
			assert.Equal(t, tt.want, *config.Pipeline.MinScore)
		})
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		config := Config{}
		config.LLM.Providers = []Provider{{Kind: ProviderOpenAI, Model: "gpt-4.1-mini", APIKey: "k", Temperature: 0.15}}
		config.Store.URL = "https://project.supabase.co"
		config.Store.Key = "key"
		applyDefaults(&config)
		return config
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "missing credentials",
			mutate: func(c *Config) {
				c.LLM.Providers[0].APIKey = ""
				c.Store.Key = ""
			},
			errorMessages: []string{
				"llm.providers: no provider has credentials configured",
				"store: SUPABASE_URL and SUPABASE_KEY are required",
			},
		},
		{
			name: "bad values",
			mutate: func(c *Config) {
				c.Pipeline.Market = "nyse"
				c.Pipeline.BatchSize = -1
				c.Catalog.CompaniesRefresh = "every day"
			},
			errorMessages: []string{
				"pipeline.market: unknown market",
				"pipeline.batch_size: batch_size must be positive",
				"catalog.companies_refresh: invalid cron spec",
			},
		},
		{
			name: "postgres backend needs database url",
			mutate: func(c *Config) {
				c.Store.Backend = "postgres"
			},
			errorMessages: []string{
				"store.database_url: DATABASE_URL is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)
			errors := config.Validate()
			assert.Len(t, errors, len(tt.errorMessages))

			for _, msg := range tt.errorMessages {
				found := false
				for _, e := range errors {
					if strings.Contains(e.Error(), msg) {
						found = true
					}
				}
				assert.True(t, found, "missing error %q in %v", msg, errors)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/news")
	t.Setenv("PROXY", "http://proxy:8080")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "https://env.supabase.co", config.Store.URL)
	assert.Equal(t, "env-key", config.Store.Key)
	assert.Equal(t, "postgres://env-db:5432/news", config.Store.DatabaseURL)
	assert.Equal(t, "http://proxy:8080", config.Scraper.Proxy)
}
