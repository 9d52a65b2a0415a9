package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

type Provider struct {
	Name        string  `yaml:"name"`
	Kind        string  `yaml:"kind"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type Config struct {
	LLM struct {
		Providers            []Provider    `yaml:"providers"`
		MaxConcurrency       int           `yaml:"max_concurrency"`
		RateLimitMargin      time.Duration `yaml:"rate_limit_margin"`
		DefaultRetryAfter    time.Duration `yaml:"default_retry_after"`
		MaxRateLimitRetries  int           `yaml:"max_rate_limit_retries"`
		ConnectionBackoff    time.Duration `yaml:"connection_backoff"`
		MaxConnectionRetries int           `yaml:"max_connection_retries"`
		RequestTimeout       time.Duration `yaml:"request_timeout"`
		CallDelay            time.Duration `yaml:"call_delay"`
	} `yaml:"llm"`

	Store struct {
		Backend         string `yaml:"backend"`
		URL             string `yaml:"url"`
		Key             string `yaml:"key"`
		DatabaseURL     string `yaml:"database_url"`
		SubmitChunkSize int    `yaml:"submit_chunk_size"`
	} `yaml:"store"`

	Scraper struct {
		RateLimit     float64       `yaml:"rate_limit"`
		Timeout       time.Duration `yaml:"timeout"`
		Proxy         string        `yaml:"proxy"`
		UserAgent     string        `yaml:"user_agent"`
		MinBodyLength int           `yaml:"min_body_length"`
	} `yaml:"scraper"`

	Pipeline struct {
		Market        string        `yaml:"market"`
		Table         string        `yaml:"table"`
		File          string        `yaml:"file"`
		DataDir       string        `yaml:"data_dir"`
		BatchSize     int           `yaml:"batch_size"`
		MinScore      *int          `yaml:"min_score"`
		Workers       int           `yaml:"workers"`
		OutdatedAfter time.Duration `yaml:"outdated_after"`
	} `yaml:"pipeline"`

	Catalog struct {
		CompaniesRefresh  string `yaml:"companies_refresh"`
		SubsectorsRefresh string `yaml:"subsectors_refresh"`
	} `yaml:"catalog"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/newsflow/config.yaml"),
			"/etc/newsflow/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if len(config.LLM.Providers) == 0 {
		config.LLM.Providers = defaultProviders()
	}
	for i := range config.LLM.Providers {
		p := &config.LLM.Providers[i]
		if p.APIKey == "" {
			p.APIKey = os.Getenv(p.keyEnv())
		}
		if p.BaseURL == "" && p.Kind == ProviderGroq {
			p.BaseURL = groqBaseURL
		}
		if p.BaseURL == "" && p.Kind == ProviderOllama {
			p.BaseURL = envOr("OLLAMA_BASE_URL", "http://localhost:11434")
		}
		if p.Temperature == 0 {
			p.Temperature = 0.15
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = 2048
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("%s/%s", p.Kind, p.Model)
			if p.APIKeyEnv != "" {
				p.Name += "@" + p.APIKeyEnv
			}
		}
	}
	if config.LLM.MaxConcurrency == 0 {
		config.LLM.MaxConcurrency = 5
	}
	if config.LLM.RateLimitMargin == 0 {
		config.LLM.RateLimitMargin = time.Second
	}
	if config.LLM.DefaultRetryAfter == 0 {
		config.LLM.DefaultRetryAfter = time.Second
	}
	if config.LLM.MaxRateLimitRetries == 0 {
		config.LLM.MaxRateLimitRetries = 3
	}
	if config.LLM.ConnectionBackoff == 0 {
		config.LLM.ConnectionBackoff = time.Second
	}
	if config.LLM.MaxConnectionRetries == 0 {
		config.LLM.MaxConnectionRetries = 2
	}
	if config.LLM.RequestTimeout == 0 {
		config.LLM.RequestTimeout = 2 * time.Minute
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "rest"
	}
	if config.Store.SubmitChunkSize == 0 {
		config.Store.SubmitChunkSize = 5
	}

	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 0.2
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 30 * time.Second
	}
	if config.Scraper.MinBodyLength == 0 {
		config.Scraper.MinBodyLength = 100
	}

	if config.Pipeline.Market == "" {
		config.Pipeline.Market = "idx"
	}
	if config.Pipeline.Table == "" {
		config.Pipeline.Table = config.Pipeline.Market + "_news"
	}
	if config.Pipeline.File == "" {
		config.Pipeline.File = "pipeline"
	}
	if config.Pipeline.DataDir == "" {
		config.Pipeline.DataDir = "./data"
	}
	if config.Pipeline.BatchSize == 0 {
		config.Pipeline.BatchSize = 75
	}
	if config.Pipeline.MinScore == nil {
		minScore := 60
		config.Pipeline.MinScore = &minScore
	}
	if config.Pipeline.Workers == 0 {
		config.Pipeline.Workers = 4
	}
	if config.Pipeline.OutdatedAfter == 0 {
		config.Pipeline.OutdatedAfter = 120 * 24 * time.Hour
	}

	if config.Catalog.CompaniesRefresh == "" {
		config.Catalog.CompaniesRefresh = "0 0 1,15 * *"
	}
	if config.Catalog.SubsectorsRefresh == "" {
		config.Catalog.SubsectorsRefresh = "0 0 1,15 * *"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		config.Store.URL = url
	}
	if key := os.Getenv("SUPABASE_KEY"); key != "" {
		config.Store.Key = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.DatabaseURL = dbURL
	}
	if proxy := os.Getenv("PROXY"); proxy != "" {
		config.Scraper.Proxy = proxy
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// defaultProviders is the failover order used when the config file lists none.
func defaultProviders() []Provider {
	groqKeys := []string{"GROQ_API_KEY1", "GROQ_API_KEY2", "GROQ_API_KEY3", "GROQ_API_KEY4"}

	var providers []Provider
	groq := func(model string) {
		for _, env := range groqKeys {
			providers = append(providers, Provider{Kind: ProviderGroq, Model: model, APIKeyEnv: env})
		}
	}

	groq("openai/gpt-oss-120b")
	providers = append(providers, Provider{Kind: ProviderGemini, Model: "gemini-2.5-flash", Temperature: 0.3})
	groq("openai/gpt-oss-20b")
	groq("qwen/qwen3-32b")
	groq("llama-3.3-70b-versatile")
	providers = append(providers, Provider{Kind: ProviderOpenAI, Model: "gpt-4.1-mini"})
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		providers = append(providers, Provider{Kind: ProviderAnthropic, Model: "claude-haiku-4-5"})
	}

	return providers
}

func (p Provider) keyEnv() string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	switch p.Kind {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY1"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
