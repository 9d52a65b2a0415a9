package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Providers
	usable := 0
	for i, p := range c.LLM.Providers {
		field := fmt.Sprintf("llm.providers[%d]", i)
		switch p.Kind {
		case ProviderOpenAI, ProviderGroq, ProviderGemini, ProviderAnthropic:
			if p.APIKey != "" {
				usable++
			}
		case ProviderOllama:
			usable++
		default:
			errors = append(errors, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown provider kind: %q", p.Kind),
			})
		}
		if p.Model == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".model",
				Message: "model is required",
			})
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			errors = append(errors, ValidationError{
				Field:   field + ".temperature",
				Message: "temperature must be between 0 and 2",
			})
		}
	}
	if usable == 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.providers",
			Message: "no provider has credentials configured",
		})
	}

	if c.LLM.MaxConcurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_concurrency",
			Message: "max_concurrency must be positive",
		})
	}

	if c.LLM.MaxRateLimitRetries < 0 || c.LLM.MaxConnectionRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.retries",
			Message: "retry ceilings must be non-negative",
		})
	}

	// Store
	switch c.Store.Backend {
	case "rest":
		if c.Store.URL == "" || c.Store.Key == "" {
			errors = append(errors, ValidationError{
				Field:   "store",
				Message: "SUPABASE_URL and SUPABASE_KEY are required for the rest backend",
			})
		} else if u, err := url.Parse(c.Store.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "invalid store URL",
			})
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.database_url",
				Message: "DATABASE_URL is required for the postgres backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend: %q", c.Store.Backend),
		})
	}

	if c.Store.SubmitChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.submit_chunk_size",
			Message: "submit_chunk_size must be positive",
		})
	}

	// Scraper
	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Scraper.Proxy != "" {
		if _, err := url.Parse(c.Scraper.Proxy); err != nil {
			errors = append(errors, ValidationError{
				Field:   "scraper.proxy",
				Message: "invalid proxy URL",
			})
		}
	}

	// Pipeline
	if c.Pipeline.Market != "idx" && c.Pipeline.Market != "sgx" {
		errors = append(errors, ValidationError{
			Field:   "pipeline.market",
			Message: fmt.Sprintf("unknown market: %q", c.Pipeline.Market),
		})
	}

	if c.Pipeline.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Pipeline.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.workers",
			Message: "workers must be positive",
		})
	}

	// Catalog refresh schedules
	for field, spec := range map[string]string{
		"catalog.companies_refresh":  c.Catalog.CompaniesRefresh,
		"catalog.subsectors_refresh": c.Catalog.SubsectorsRefresh,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid cron spec %q", spec),
			})
		}
	}

	return errors
}
