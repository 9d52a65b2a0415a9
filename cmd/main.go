package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/xhad/newsflow/internal/logging"
	cfgPkg "github.com/xhad/newsflow/pkg/config"
	"github.com/xhad/newsflow/pkg/pipeline"
	"github.com/xhad/newsflow/pkg/store"
)

func main() {
	flags := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		logger := logging.New(flags.LogLevel, true)
		logger.Fatal().Err(err).Msg("newsflow failed")
	}
}

func run(ctx context.Context, flags Flags) error {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags.apply(cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty).With().
		Str("market", cfg.Pipeline.Market).
		Str("table", cfg.Pipeline.Table).
		Logger()

	if flags.Cleanup {
		backend, err := store.New(ctx, cfg, logging.Component(logger, "store"))
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		defer backend.Close()

		n, err := pipeline.Cleanup(ctx, pipeline.CleanupConfig{
			Table:         cfg.Pipeline.Table,
			DataDir:       cfg.Pipeline.DataDir,
			OutdatedAfter: cfg.Pipeline.OutdatedAfter,
		}, backend, logging.Component(logger, "cleanup"))
		if err != nil {
			return fmt.Errorf("failed to clean up outdated news: %w", err)
		}
		color.Green("Archived and deleted %d outdated articles from %s\n", n, cfg.Pipeline.Table)
		return nil
	}

	bar := getProgressBar(-1, "Enriching articles...")
	pc, err := pipeline.NewPipelineContext(ctx, cfg, pipeline.ContextHooks{
		OnFetch: func(url string) {
			bar.Describe(color.BlueString("Fetching %s", url))
		},
	}, logger)
	if err != nil {
		return err
	}
	defer pc.Close()

	color.Blue("\nProcessing %s batch %d (size %d) into %s\n", cfg.Pipeline.File, flags.Batch, cfg.Pipeline.BatchSize, cfg.Pipeline.Table)

	p := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Table:     cfg.Pipeline.Table,
		MinScore:  *cfg.Pipeline.MinScore,
		ChunkSize: cfg.Store.SubmitChunkSize,
		ExportCSV: flags.ExportCSV,
		OnProgress: func(done, total int) {
			bar.ChangeMax(total)
			bar.Set(done)
		},
	}, pc)

	summary, err := p.RunBatch(ctx, flags.Batch, cfg.Pipeline.BatchSize)
	bar.Finish()
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}
