package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/newsflow/internal/llmtest"
	"github.com/xhad/newsflow/pkg/llm"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newScorer(market string, pool llm.Completer) *Scorer {
	return NewWithConfig(ScorerConfig{Market: market, Now: func() time.Time { return now }}, pool, zerolog.Nop())
}

func TestScore(t *testing.T) {
	pool := llmtest.New().On("score", `{"score": 80}`)
	s := newScorer("idx", pool)

	got, err := s.Score(context.Background(), "GOTO reported a 30% revenue jump.", now.Add(-time.Hour), "https://www.kontan.co.id/news/1")

	require.NoError(t, err)
	assert.Equal(t, 80+5+3, got)
	assert.Contains(t, pool.LastPrompt("score"), "Tier 3: Critical & Actionable")
	assert.Contains(t, pool.LastPrompt("score"), "IDX-listed")
}

func TestScoreNegativeAdvances(t *testing.T) {
	pool := llmtest.New().On("score", `{"score": -3}`, `{"score": 150}`)
	s := newScorer("idx", pool)

	got, err := s.Score(context.Background(), "A long enough body.", now, "https://www.reuters.com/x")

	require.NoError(t, err)
	assert.Equal(t, MaxScore, got)
	assert.Equal(t, 1, pool.Calls("score"))
}

func TestScoreAboveRubricIsClamped(t *testing.T) {
	pool := llmtest.New().On("score", `{"score": 140}`, `{"score": 150}`)
	s := newScorer("idx", pool)

	got, err := s.Score(context.Background(), "A long enough body.", now, "https://www.reuters.com/x")

	require.NoError(t, err)
	assert.Equal(t, MaxScore, got)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-1, 0, MaxScore))
	assert.Equal(t, MaxScore, clamp(200, 0, MaxScore))
	assert.Equal(t, 70, clamp(70, 0, MaxScore))
}

func TestScoreShortBodySkipsPool(t *testing.T) {
	pool := llmtest.New().On("score", `{"score": 80}`)
	s := newScorer("idx", pool)

	got, err := s.Score(context.Background(), "  short   ", now, "https://x/1")

	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 0, pool.Calls("score"))
}

func TestScorePoolFailureIsNotZero(t *testing.T) {
	pool := llmtest.New().Fail("score", llm.ErrExhausted)
	s := newScorer("idx", pool)
	published := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Score(context.Background(), "twenty characters ok", published, "https://x/1")

	assert.ErrorIs(t, err, ErrScoring)
	assert.ErrorIs(t, err, llm.ErrExhausted)
	assert.LessOrEqual(t, s.Recency(published)+s.Credibility("https://x/1"), 2)
}

func TestScoreMissingFieldAdvances(t *testing.T) {
	pool := llmtest.New().On("score", `{"points": 10}`, `{"score": 0}`)
	s := newScorer("idx", pool)

	got, err := s.Score(context.Background(), "A long enough body.", now.AddDate(0, -1, 0), "https://x/1")

	require.NoError(t, err)
	assert.Equal(t, 0+1+1, got)
}

func TestRecency(t *testing.T) {
	s := newScorer("idx", llmtest.New())
	tests := []struct {
		age  time.Duration
		want int
	}{
		{time.Hour, 5},
		{48 * time.Hour, 5},
		{49 * time.Hour, 3},
		{7 * 24 * time.Hour, 3},
		{10 * 24 * time.Hour, 2},
		{15 * 24 * time.Hour, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Recency(now.Add(-tt.age)), tt.age.String())
	}
}

func TestCredibility(t *testing.T) {
	idx := newScorer("idx", llmtest.New())
	sgx := newScorer("sgx", llmtest.New())

	assert.Equal(t, 5, idx.Credibility("https://www.idx.co.id/news"))
	assert.Equal(t, 3, idx.Credibility("https://finansial.bisnis.com/read/1"))
	assert.Equal(t, 1, idx.Credibility("https://emitennews.com/news/1"))
	assert.Equal(t, 1, idx.Credibility("not a url"))
	assert.Equal(t, 3, sgx.Credibility("https://www.businesstimes.com.sg/companies"))
	assert.Equal(t, 1, sgx.Credibility("https://www.kontan.co.id/news/1"))
}

func TestRubricFor(t *testing.T) {
	assert.Contains(t, RubricFor("sgx").Criteria, "SGX-listed")
	assert.Contains(t, RubricFor("sgx").Criteria, "Singapore dollar performance")
	assert.NotContains(t, RubricFor("idx").Criteria, "{")
}
