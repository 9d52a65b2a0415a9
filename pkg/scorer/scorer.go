package scorer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/pkg/llm"
)

// ErrScoring is returned when the qualitative score could not be produced.
var ErrScoring = errors.New("scoring failed")

const (
	MaxScore      = 155
	minBodyLength = 10
)

type ScorerConfig struct {
	Market string
	Now    func() time.Time
}

type Scorer struct {
	config ScorerConfig
	rubric Rubric
	pool   llm.Completer
	prompt llm.Template
	logger zerolog.Logger
}

// ScoreResult is the qualitative score answer.
type ScoreResult struct {
	Score *int `json:"score" validate:"required,min=0"`
}

func (r ScoreResult) Validate() error {
	return llm.ValidateStruct(r)
}

const systemPrompt = "You are a financial news editor who rates how valuable an article is to stock investors. Answer with JSON only."

var scorePrompt = llm.NewTemplate(`Score the article below using the criteria.

Criteria:
{{.criteria}}

Article:
{{.body}}

Pick the tier first, then add the bonus points that apply.

Return JSON of the form {"score": <integer>}.`, "body")

func NewWithConfig(config ScorerConfig, pool llm.Completer, logger zerolog.Logger) *Scorer {
	if config.Now == nil {
		config.Now = time.Now
	}
	rubric := RubricFor(config.Market)

	return &Scorer{
		config: config,
		rubric: rubric,
		pool:   pool,
		prompt: scorePrompt.WithPartials(map[string]any{"criteria": rubric.Criteria}),
		logger: logger,
	}
}

// Score sums the generated score, recency and source credibility, clamped to [0, MaxScore].
// A body under ten characters scores 0 without a generation call.
func (s *Scorer) Score(ctx context.Context, body string, published time.Time, source string) (int, error) {
	if len(strings.TrimSpace(body)) < minBodyLength {
		s.logger.Warn().Str("source", source).Msg("article body too short for scoring, returning 0")
		return 0, nil
	}

	prompt, err := s.prompt.Render(map[string]any{"body": body})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	result, err := llm.Complete[ScoreResult](ctx, s.pool, llm.Request{Task: "score", System: systemPrompt, Prompt: prompt})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoring, err)
	}

	recency := s.Recency(published)
	credibility := s.Credibility(source)
	total := clamp(*result.Score+recency+credibility, 0, MaxScore)

	s.logger.Debug().
		Str("source", source).
		Int("generated", *result.Score).
		Int("recency", recency).
		Int("credibility", credibility).
		Int("total", total).
		Msg("scored article")

	return total, nil
}

// Recency is 5 within 48 hours, 3 within a week, 2 within two weeks, else 1.
func (s *Scorer) Recency(published time.Time) int {
	age := s.config.Now().Sub(published)
	switch {
	case age <= 48*time.Hour:
		return 5
	case age <= 7*24*time.Hour:
		return 3
	case age <= 14*24*time.Hour:
		return 2
	default:
		return 1
	}
}

// Credibility is 5 for top-tier domains, 3 for national outlets, else 1.
func (s *Scorer) Credibility(source string) int {
	u, err := url.Parse(source)
	if err != nil {
		return 1
	}
	host := strings.ToLower(strings.TrimSpace(u.Host))
	switch {
	case containsAny(host, s.rubric.TopTier):
		return 5
	case containsAny(host, s.rubric.National):
		return 3
	default:
		return 1
	}
}

func containsAny(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
