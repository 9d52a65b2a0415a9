package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	mu      sync.Mutex
	replies []reply
	calls   int
}

type reply struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].text, f.replies[i].err
}

func newTestPool(t *testing.T, config PoolConfig, providers ...Provider) (*Pool, *[]time.Duration) {
	t.Helper()
	pool, err := NewPool(providers, config, zerolog.Nop())
	require.NoError(t, err)

	var waits []time.Duration
	pool.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return pool, &waits
}

func acceptAll(string) error { return nil }

type scoreResult struct {
	Score *int `json:"score" validate:"required"`
}

func (r scoreResult) Validate() error { return ValidateStruct(r) }

func TestNewPoolRequiresProviders(t *testing.T) {
	_, err := NewPool(nil, PoolConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPoolNamesKeepOrder(t *testing.T) {
	pool, err := NewPool([]Provider{&fakeProvider{name: "openai"}, &fakeProvider{name: "ollama"}}, PoolConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "ollama"}, pool.Names())
}

func TestCompleteFirstProviderSucceeds(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{text: "ok"}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "unused"}}}
	pool, waits := newTestPool(t, PoolConfig{}, first, second)

	var got string
	err := pool.Complete(context.Background(), Request{Task: "test"}, func(text string) error {
		got = text
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
	assert.Empty(t, *waits)
}

func TestCompleteRateLimitRetriesSameProvider(t *testing.T) {
	limited := errors.New("429 Too Many Requests: please try again in 2s")
	first := &fakeProvider{name: "first", replies: []reply{{err: limited}, {text: "ok"}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "unused"}}}
	pool, waits := newTestPool(t, PoolConfig{RateLimitMargin: time.Second}, first, second)

	err := pool.Complete(context.Background(), Request{Task: "test"}, acceptAll)

	require.NoError(t, err)
	assert.Equal(t, 2, first.calls)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, *waits)
}

func TestCompleteRateLimitFallsBackToDefaultHint(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{err: errors.New("rate limit reached")}, {text: "ok"}}}
	pool, waits := newTestPool(t, PoolConfig{RateLimitMargin: time.Second, DefaultRetryAfter: 5 * time.Second}, first)

	require.NoError(t, pool.Complete(context.Background(), Request{Task: "test"}, acceptAll))
	assert.Equal(t, []time.Duration{6 * time.Second}, *waits)
}

func TestCompleteRateLimitCeilingAdvances(t *testing.T) {
	limited := errors.New("429 rate limit")
	first := &fakeProvider{name: "first", replies: []reply{{err: limited}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "ok"}}}
	pool, waits := newTestPool(t, PoolConfig{MaxRateLimitRetries: 2}, first, second)

	require.NoError(t, pool.Complete(context.Background(), Request{Task: "test"}, acceptAll))
	assert.Equal(t, 3, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Len(t, *waits, 2)
}

func TestCompleteQuotaAdvancesImmediately(t *testing.T) {
	quota := errors.New("429: Rate limit reached on tokens per day (TPD)")
	first := &fakeProvider{name: "first", replies: []reply{{err: quota}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "ok"}}}
	pool, waits := newTestPool(t, PoolConfig{}, first, second)

	require.NoError(t, pool.Complete(context.Background(), Request{Task: "test"}, acceptAll))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Empty(t, *waits)
}

func TestCompleteConnectionErrorBacksOff(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{err: errors.New("connection reset by peer")}, {text: "ok"}}}
	pool, waits := newTestPool(t, PoolConfig{ConnectionBackoff: 2 * time.Second}, first)

	require.NoError(t, pool.Complete(context.Background(), Request{Task: "test"}, acceptAll))
	assert.Equal(t, 2, first.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
}

func TestCompleteMalformedOutputAdvances(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{text: `{"score": "high"}`}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: `{"score": 72}`}}}
	pool, _ := newTestPool(t, PoolConfig{}, first, second)

	result, err := Complete[scoreResult](context.Background(), pool, Request{Task: "score"})

	require.NoError(t, err)
	require.NotNil(t, result.Score)
	assert.Equal(t, 72, *result.Score)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestCompleteMissingFieldAdvances(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{text: `{"rating": 3}`}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "```json\n{\"score\": 0}\n```"}}}
	pool, _ := newTestPool(t, PoolConfig{}, first, second)

	result, err := Complete[scoreResult](context.Background(), pool, Request{Task: "score"})

	require.NoError(t, err)
	require.NotNil(t, result.Score)
	assert.Equal(t, 0, *result.Score)
}

func TestCompleteExhausted(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{err: errors.New("invalid api key")}}}
	second := &fakeProvider{name: "second", replies: []reply{{text: "not json"}}}
	pool, _ := newTestPool(t, PoolConfig{}, first, second)

	_, err := Complete[scoreResult](context.Background(), pool, Request{Task: "score"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestCompleteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeProvider{name: "first", replies: []reply{{err: errors.New("429 rate limit")}}}
	pool, _ := newTestPool(t, PoolConfig{}, first)
	cancel()

	err := pool.Complete(ctx, Request{Task: "test"}, acceptAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompleteCallDelay(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{text: "ok"}}}
	pool, waits := newTestPool(t, PoolConfig{CallDelay: 500 * time.Millisecond}, first)

	require.NoError(t, pool.Complete(context.Background(), Request{Task: "test"}, acceptAll))
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *waits)
}

func TestCompleteConcurrentCallers(t *testing.T) {
	first := &fakeProvider{name: "first", replies: []reply{{text: "ok"}}}
	pool, err := NewPool([]Provider{first}, PoolConfig{MaxConcurrency: 2}, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- pool.Complete(context.Background(), Request{Task: fmt.Sprintf("task-%d", i)}, acceptAll)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 10, first.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "trying", stateTrying.String())
	assert.Equal(t, "backoff", stateBackoff.String())
	assert.Equal(t, "success", stateSuccess.String())
	assert.Equal(t, "exhausted", stateExhausted.String())
}
