// Package pipeline runs one batch of raw news items through enrichment and submission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/pkg/classifier"
	"github.com/xhad/newsflow/pkg/resolver"
)

// ErrEmptySummary is returned when summarization produced no title or body.
var ErrEmptySummary = errors.New("empty title or body")

// TimestampLayout is how submitted articles carry their publish time.
const TimestampLayout = "2006-01-02T15:04:05"

type PipelineConfig struct {
	Table string
	// MinScore is exclusive: only scores above it are accepted.
	MinScore  int
	ChunkSize int
	// ExportCSV writes accepted articles to OutputDir before submission.
	ExportCSV bool
	OutputDir string
	// OnProgress is called after every item attempt.
	OnProgress func(done, total int)
}

// Summary reports the outcome of one batch.
type Summary struct {
	RunID          string
	Batch          int
	Items          int
	Succeeded      int
	SkippedByScore int
	Failed         int
	Submitted      int
	ChunkFailures  int
	Elapsed        time.Duration
}

type Pipeline struct {
	config PipelineConfig
	pc     *PipelineContext
}

func NewWithConfig(config PipelineConfig, pc *PipelineContext) *Pipeline {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 5
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}

	return &Pipeline{
		config: config,
		pc:     pc,
	}
}

// RunBatch reads batch from the checkpoint and processes it.
func (p *Pipeline) RunBatch(ctx context.Context, batch, size int) (Summary, error) {
	items, err := p.pc.Checkpoint.Batch(ctx, batch, size)
	if err != nil {
		return Summary{Batch: batch}, fmt.Errorf("failed to load batch %d: %w", batch, err)
	}
	summary, err := p.Process(ctx, items)
	summary.Batch = batch
	return summary, err
}

// Process enriches items one at a time, replays failures once, and submits
// the articles scoring above the minimum in chunks.
func (p *Pipeline) Process(ctx context.Context, items []models.RawItem) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), Items: len(items)}
	logger := p.pc.Logger.With().Str("run_id", summary.RunID).Logger()
	logger.Info().Int("items", len(items)).Msg("starting batch")

	var (
		accepted []models.EnrichedArticle
		retry    []models.RawItem
		done     int
		total    = len(items)
	)

	pass := func(queue []models.RawItem, final bool) error {
		for _, item := range queue {
			if err := ctx.Err(); err != nil {
				return err
			}
			log := logger.With().Str("source", item.Source).Logger()

			article, err := p.Enrich(ctx, item)
			done++
			p.progress(done, total)
			if err != nil {
				if final {
					log.Error().Err(err).Msg("item failed after retry, dropping")
					summary.Failed++
				} else {
					log.Warn().Err(err).Msg("item failed, queued for retry")
					retry = append(retry, item)
				}
				continue
			}

			if article.Score <= p.config.MinScore {
				log.Info().Int("score", article.Score).Int("min_score", p.config.MinScore).Msg("score too low, skipping")
				summary.SkippedByScore++
				continue
			}
			log.Info().Int("score", article.Score).Strs("tickers", article.Tickers).Msg("article accepted")
			summary.Succeeded++
			accepted = append(accepted, article)
		}
		return nil
	}

	if err := pass(items, false); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}
	if len(retry) > 0 {
		logger.Info().Int("items", len(retry)).Msg("replaying failed items")
		queue := retry
		retry = nil
		total += len(queue)
		if err := pass(queue, true); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
	}

	if p.config.ExportCSV && len(accepted) > 0 {
		path := filepath.Join(p.config.OutputDir, "final_processed_articles_"+p.config.Table+".csv")
		if err := WriteCSV(path, accepted); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("failed to export articles")
		} else {
			logger.Info().Str("path", path).Int("articles", len(accepted)).Msg("exported articles")
		}
	}

	summary.Submitted, summary.ChunkFailures = p.Submit(ctx, logger, accepted)
	summary.Elapsed = time.Since(start)

	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("skipped_by_score", summary.SkippedByScore).
		Int("failed", summary.Failed).
		Int("submitted", summary.Submitted).
		Int("chunk_failures", summary.ChunkFailures).
		Dur("elapsed", summary.Elapsed).
		Msg("batch finished")
	return summary, nil
}

// Enrich runs one item through summarization, classification, entity
// resolution and scoring. Any stage failure fails the item.
func (p *Pipeline) Enrich(ctx context.Context, item models.RawItem) (models.EnrichedArticle, error) {
	published, err := item.PublishedAt()
	if err != nil {
		return models.EnrichedArticle{}, err
	}

	title, body, err := p.pc.Summarizer.Summarize(ctx, item.Source)
	if err != nil {
		return models.EnrichedArticle{}, err
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return models.EnrichedArticle{}, ErrEmptySummary
	}

	class, err := p.pc.Classifier.Classify(ctx, title, body)
	if err != nil {
		return models.EnrichedArticle{}, err
	}

	resolution, err := p.pc.Resolver.Resolve(ctx, resolver.Input{
		Title:      title,
		Body:       body,
		Source:     item.Source,
		Subsectors: class.Subsectors,
	})
	if err != nil {
		return models.EnrichedArticle{}, err
	}

	score, err := p.pc.Scorer.Score(ctx, body, published, item.Source)
	if err != nil {
		return models.EnrichedArticle{}, err
	}

	tags := append([]string{}, class.Tags...)
	if class.Sentiment != "" && class.Sentiment != classifier.SentimentNotApplicable {
		tags = append(tags, class.Sentiment)
	}
	dimension := class.Dimension

	return models.EnrichedArticle{
		Title:     title,
		Body:      body,
		Source:    item.Source,
		Timestamp: published.Format(TimestampLayout),
		Score:     score,
		Tags:      tags,
		Tickers:   resolution.Tickers,
		SubSector: resolution.SubSector,
		Sector:    resolution.Sector,
		Dimension: &dimension,
	}, nil
}

// Submit inserts articles in fixed-size chunks. A failed chunk is logged and
// counted; later chunks still go out.
func (p *Pipeline) Submit(ctx context.Context, logger zerolog.Logger, articles []models.EnrichedArticle) (int, int) {
	var submitted, failures int
	for start := 0; start < len(articles); start += p.config.ChunkSize {
		end := min(start+p.config.ChunkSize, len(articles))
		chunk := articles[start:end]

		if err := p.pc.Store.Insert(ctx, p.config.Table, chunk); err != nil {
			failures++
			sources := make([]string, 0, len(chunk))
			for _, a := range chunk {
				sources = append(sources, a.Source)
			}
			logger.Error().Err(err).Strs("sources", sources).Int("chunk", start/p.config.ChunkSize+1).Msg("failed to submit chunk")
			continue
		}
		submitted += len(chunk)
		logger.Info().Int("chunk", start/p.config.ChunkSize+1).Int("articles", len(chunk)).Msg("submitted chunk")
	}
	return submitted, failures
}

func (p *Pipeline) progress(done, total int) {
	if p.config.OnProgress != nil {
		p.config.OnProgress(done, total)
	}
}
