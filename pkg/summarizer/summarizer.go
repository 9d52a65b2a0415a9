package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/types"
	"github.com/xhad/newsflow/pkg/llm"
	"github.com/xhad/newsflow/pkg/processor"
)

// ErrNoContent is returned when the fetched body is too short to summarize.
var ErrNoContent = errors.New("article body too short")

type SummarizerConfig struct {
	MinBodyLength int
	// TableSources are URL fragments of sites that embed data tables.
	TableSources []string
}

type Summarizer struct {
	config  SummarizerConfig
	pool    llm.Completer
	fetcher types.BodyFetcher
	proc    processor.Processor
	logger  zerolog.Logger
}

// SummaryResult is the generated headline and summary.
type SummaryResult struct {
	Title   string `json:"title" validate:"required"`
	Summary string `json:"summary" validate:"required"`
}

func (r SummaryResult) Validate() error {
	return llm.ValidateStruct(r)
}

const systemPrompt = "You are a financial journalist who writes short, factual news summaries. Answer with JSON only."

var summaryPrompt = llm.NewTemplate(`Summarize the article below.

Article:
{{.body}}

Rules:
- The title is one short headline naming the company and the key event.
- The summary is at most two sentences and keeps the key numbers.
- Keep company names as written in the article.
- Do not add facts that are not in the article.

Return JSON of the form {"title": "<headline>", "summary": "<summary>"}.`, "body")

func NewWithConfig(config SummarizerConfig, pool llm.Completer, fetcher types.BodyFetcher, proc processor.Processor, logger zerolog.Logger) *Summarizer {
	if config.MinBodyLength == 0 {
		config.MinBodyLength = 100
	}
	if config.TableSources == nil {
		config.TableSources = []string{"businesstimes"}
	}

	return &Summarizer{
		config:  config,
		pool:    pool,
		fetcher: fetcher,
		proc:    proc,
		logger:  logger,
	}
}

// Summarize fetches the article at url and returns its generated title and body.
func (s *Summarizer) Summarize(ctx context.Context, url string) (string, string, error) {
	log := s.logger.With().Str("source", url).Logger()

	body, err := s.fetcher.FetchBody(ctx, url)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch article: %w", err)
	}
	body = processor.CollapseWhitespace(body)
	if utf8.RuneCountInString(body) <= s.config.MinBodyLength {
		return "", "", fmt.Errorf("%w: %d characters", ErrNoContent, utf8.RuneCountInString(body))
	}

	if s.hasTables(url) {
		if tables := s.fetcher.ExpandTables(ctx, url); tables != "" {
			body += "\n" + tables
		}
	}

	prompt, err := summaryPrompt.Render(map[string]any{"body": body})
	if err != nil {
		return "", "", err
	}
	result, err := llm.Complete[SummaryResult](ctx, s.pool, llm.Request{Task: "summary", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return "", "", fmt.Errorf("failed to summarize article: %w", err)
	}

	title := s.proc.CleanTitle(result.Title)
	summary := s.proc.CleanBody(result.Summary)
	log.Debug().Str("title", title).Msg("summarized article")

	return title, summary, nil
}

func (s *Summarizer) hasTables(url string) bool {
	for _, fragment := range s.config.TableSources {
		if strings.Contains(url, fragment) {
			return true
		}
	}
	return false
}
