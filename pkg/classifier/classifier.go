package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/pkg/catalog"
	"github.com/xhad/newsflow/pkg/llm"
)

// ErrClassification is returned when any of the four classification calls fails.
var ErrClassification = errors.New("classification failed")

// SentimentNotApplicable is never appended to an article's tags.
const SentimentNotApplicable = "Not Applicable"

type ClassifierConfig struct {
	MaxTags int
	// Shorten trims sub-sector descriptions before they go into the prompt.
	Shorten func(string) string
}

// Classification is the outcome of classifying one article.
type Classification struct {
	Tags       []string
	Subsectors []string
	Sentiment  string
	Dimension  models.DimensionScores
}

type Classifier struct {
	config    ClassifierConfig
	pool      llm.Completer
	catalog   *catalog.Catalog
	logger    zerolog.Logger
	tags      llm.Template
	subsector llm.Template
	sentiment llm.Template
}

func NewWithConfig(config ClassifierConfig, pool llm.Completer, cat *catalog.Catalog, logger zerolog.Logger) *Classifier {
	if config.MaxTags == 0 {
		config.MaxTags = MaxTags
	}
	exchange := cat.Market.Exchange

	return &Classifier{
		config:  config,
		pool:    pool,
		catalog: cat,
		logger:  logger,
		tags: tagsPrompt.WithPartials(map[string]any{
			"tags":     cat.TagPrompt(),
			"exchange": exchange,
		}),
		subsector: subsectorPrompt.WithPartials(map[string]any{
			"subsectors": cat.SubsectorPrompt(config.Shorten),
		}),
		sentiment: sentimentPrompt.WithPartials(map[string]any{
			"exchange": exchange,
		}),
	}
}

// Classify runs the tag, sub-sector, sentiment and dimension calls one after another.
// Any failure fails the whole classification.
func (c *Classifier) Classify(ctx context.Context, title, body string) (Classification, error) {
	var result Classification

	tags, err := c.classifyTags(ctx, body)
	if err != nil {
		return Classification{}, c.fail("tags", err)
	}
	result.Tags = tags

	subsectors, err := c.classifySubsector(ctx, body)
	if err != nil {
		return Classification{}, c.fail("subsectors", err)
	}
	result.Subsectors = subsectors

	sentiment, err := c.classifySentiment(ctx, body)
	if err != nil {
		return Classification{}, c.fail("sentiment", err)
	}
	result.Sentiment = sentiment

	dimension, err := c.classifyDimension(ctx, title, body)
	if err != nil {
		return Classification{}, c.fail("dimension", err)
	}
	result.Dimension = dimension

	return result, nil
}

func (c *Classifier) fail(category string, err error) error {
	c.logger.Error().Err(err).Str("category", category).Msg("classification step failed, failing article")
	return fmt.Errorf("%w: %s: %w", ErrClassification, category, err)
}

func (c *Classifier) classifyTags(ctx context.Context, body string) ([]string, error) {
	prompt, err := c.tags.Render(map[string]any{"body": body})
	if err != nil {
		return nil, err
	}
	result, err := llm.Complete[TagsResult](ctx, c.pool, llm.Request{Task: "tags", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return c.FilterTags(result.Tags), nil
}

// FilterTags keeps catalog tags in the model's order, without duplicates.
func (c *Classifier) FilterTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	kept := []string{}
	for _, tag := range tags {
		if !c.catalog.HasTag(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		kept = append(kept, tag)
		if len(kept) == c.config.MaxTags {
			break
		}
	}
	return kept
}

func (c *Classifier) classifySubsector(ctx context.Context, body string) ([]string, error) {
	prompt, err := c.subsector.Render(map[string]any{"body": body})
	if err != nil {
		return nil, err
	}
	result, err := llm.Complete[SubsectorResult](ctx, c.pool, llm.Request{Task: "subsectors", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return result.Subsector, nil
}

func (c *Classifier) classifySentiment(ctx context.Context, body string) (string, error) {
	prompt, err := c.sentiment.Render(map[string]any{"body": body})
	if err != nil {
		return "", err
	}
	result, err := llm.Complete[SentimentResult](ctx, c.pool, llm.Request{Task: "sentiment", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return result.Sentiment, nil
}

func (c *Classifier) classifyDimension(ctx context.Context, title, body string) (models.DimensionScores, error) {
	prompt, err := dimensionPrompt.Render(map[string]any{"title": title, "body": body})
	if err != nil {
		return models.DimensionScores{}, err
	}
	result, err := llm.Complete[DimensionResult](ctx, c.pool, llm.Request{Task: "dimension", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return models.DimensionScores{}, err
	}
	return result.Scores(), nil
}
