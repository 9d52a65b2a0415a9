package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/logging"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/internal/types"
	"github.com/xhad/newsflow/pkg/catalog"
	"github.com/xhad/newsflow/pkg/checkpoint"
	"github.com/xhad/newsflow/pkg/classifier"
	"github.com/xhad/newsflow/pkg/config"
	"github.com/xhad/newsflow/pkg/llm"
	"github.com/xhad/newsflow/pkg/processor"
	"github.com/xhad/newsflow/pkg/resolver"
	"github.com/xhad/newsflow/pkg/scorer"
	"github.com/xhad/newsflow/pkg/scraper"
	"github.com/xhad/newsflow/pkg/store"
	"github.com/xhad/newsflow/pkg/summarizer"
	"github.com/xhad/newsflow/pkg/worker"
)

type Summarizer interface {
	Summarize(ctx context.Context, url string) (string, string, error)
}

type Classifier interface {
	Classify(ctx context.Context, title, body string) (classifier.Classification, error)
}

type Resolver interface {
	Resolve(ctx context.Context, in resolver.Input) (resolver.Resolution, error)
}

type Scorer interface {
	Score(ctx context.Context, body string, published time.Time, source string) (int, error)
}

type Checkpoint interface {
	Batch(ctx context.Context, batch, size int) ([]models.RawItem, error)
}

// PipelineContext holds everything a run shares. It is built once per process
// and read-only afterwards.
type PipelineContext struct {
	Config     *config.Config
	Logger     zerolog.Logger
	LLM        llm.Completer
	Workers    *worker.Pool
	Catalog    *catalog.Catalog
	Store      types.Store
	Fetcher    types.BodyFetcher
	Checkpoint Checkpoint
	Summarizer Summarizer
	Classifier Classifier
	Resolver   Resolver
	Scorer     Scorer

	closers []func()
}

// ContextHooks are optional callbacks for long-running steps.
type ContextHooks struct {
	// OnFetch is called before each article page is fetched.
	OnFetch func(url string)
}

// NewPipelineContext wires every component from cfg. Missing credentials or
// unreadable catalogs fail here, before any batch work starts.
func NewPipelineContext(ctx context.Context, cfg *config.Config, hooks ContextHooks, logger zerolog.Logger) (*PipelineContext, error) {
	pc := &PipelineContext{Config: cfg, Logger: logger}

	backend, err := store.New(ctx, cfg, logging.Component(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	pc.Store = backend
	pc.closers = append(pc.closers, backend.Close)

	providers, err := llm.NewProviders(ctx, cfg.LLM.Providers, logging.Component(logger, "llm"))
	if err != nil {
		pc.Close()
		return nil, err
	}
	pool, err := llm.NewPool(providers, llm.PoolConfigFrom(cfg), logging.Component(logger, "llm"))
	if err != nil {
		pc.Close()
		return nil, err
	}
	pc.LLM = pool

	pc.Workers = worker.NewWithConfig(worker.PoolConfig{Workers: cfg.Pipeline.Workers}, logging.Component(logger, "worker"))
	pc.closers = append(pc.closers, func() { pc.Workers.Close() })

	scr, err := scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit:     cfg.Scraper.RateLimit,
		Timeout:       cfg.Scraper.Timeout,
		Proxy:         cfg.Scraper.Proxy,
		UserAgent:     cfg.Scraper.UserAgent,
		MinBodyLength: cfg.Scraper.MinBodyLength,
		OnProgress:    hooks.OnFetch,
	}, logging.Component(logger, "scraper"))
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}
	pc.Fetcher = NewPooledFetcher(pc.Workers, scr, logging.Component(logger, "fetcher"))

	pc.Catalog, err = catalog.Load(ctx, catalog.CatalogConfig{
		DataDir:           cfg.Pipeline.DataDir,
		Market:            cfg.Pipeline.Market,
		CompaniesRefresh:  cfg.Catalog.CompaniesRefresh,
		SubsectorsRefresh: cfg.Catalog.SubsectorsRefresh,
	}, backend, logging.Component(logger, "catalog"))
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	pc.Checkpoint, err = checkpoint.NewWithConfig(checkpoint.CheckpointConfig{
		DataDir: cfg.Pipeline.DataDir,
		Market:  cfg.Pipeline.Market,
		File:    cfg.Pipeline.File,
		Table:   cfg.Pipeline.Table,
	}, backend, logging.Component(logger, "checkpoint"))
	if err != nil {
		pc.Close()
		return nil, err
	}

	proc := processor.New()
	pc.Summarizer = summarizer.NewWithConfig(summarizer.SummarizerConfig{
		MinBodyLength: cfg.Scraper.MinBodyLength,
	}, pool, pc.Fetcher, proc, logging.Component(logger, "summarizer"))
	pc.Classifier = classifier.NewWithConfig(classifier.ClassifierConfig{
		Shorten: proc.FirstSentences,
	}, pool, pc.Catalog, logging.Component(logger, "classifier"))
	pc.Resolver = resolver.NewWithConfig(resolver.ResolverConfig{}, pool, pc.Catalog, pc.Fetcher, logging.Component(logger, "resolver"))
	pc.Scorer = scorer.NewWithConfig(scorer.ScorerConfig{
		Market: cfg.Pipeline.Market,
	}, pool, logging.Component(logger, "scorer"))

	logger.Info().
		Strs("providers", pool.Names()).
		Int("workers", pc.Workers.Workers()).
		Msg("pipeline context ready")
	return pc, nil
}

// Close releases the worker pool and the store.
func (pc *PipelineContext) Close() {
	for i := len(pc.closers) - 1; i >= 0; i-- {
		pc.closers[i]()
	}
	pc.closers = nil
}
