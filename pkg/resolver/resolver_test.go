package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/newsflow/internal/llmtest"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/pkg/catalog"
	"github.com/xhad/newsflow/pkg/llm"
)

type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchBody(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.body, f.err
}

func (f *fakeFetcher) ExpandTables(ctx context.Context, url string) string { return "" }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	market, err := catalog.MarketFor("idx")
	require.NoError(t, err)
	return catalog.New(market, nil,
		map[string]string{"banks": "Lenders.", "coal": "Coal miners."},
		map[string]models.Company{
			"BBCA.JK": {Symbol: "BBCA.JK", Name: "PT Bank Central Asia Tbk", SubSector: "banks"},
			"BMRI.JK": {Symbol: "BMRI.JK", Name: "PT Bank Mandiri (Persero) Tbk", SubSector: "banks"},
			"PTBA.JK": {Symbol: "PTBA.JK", Name: "PT Bukit Asam Tbk", SubSector: "coal"},
		},
		map[string]string{"banks": "Financials", "coal": "Energy"},
	)
}

func TestResolveMatchesCompanyNames(t *testing.T) {
	pool := llmtest.New().On("company_names", `{"company": ["PT Bank Central Asia Tbk", "Bukit Asam", "Unknown Corp"]}`)
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), nil, zerolog.Nop())

	res, err := r.Resolve(context.Background(), Input{
		Title:      "BCA and PTBA report earnings",
		Body:       "PT Bank Central Asia Tbk and Bukit Asam reported profits.",
		Source:     "https://kontan.co.id/news/1",
		Subsectors: []string{"coal"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"BBCA.JK", "PTBA.JK"}, res.Tickers)
	assert.Equal(t, []string{"banks", "coal"}, res.SubSector)
	assert.Equal(t, "Financials", res.Sector)
	assert.Contains(t, pool.LastPrompt("company_names"), "BCA and PTBA report earnings PT Bank Central Asia Tbk")
}

func TestResolveFallsBackToClassifiedSubsector(t *testing.T) {
	pool := llmtest.New().On("company_names", `{"company": []}`)
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), nil, zerolog.Nop())

	res, err := r.Resolve(context.Background(), Input{Body: "Coal prices rose.", Subsectors: []string{"Coal", "banks"}})
	require.NoError(t, err)
	assert.Empty(t, res.Tickers)
	assert.Equal(t, []string{"coal"}, res.SubSector)
	assert.Equal(t, "Energy", res.Sector)

	res, err = r.Resolve(context.Background(), Input{Body: "Gold prices rose.", Subsectors: []string{"gold"}})
	require.NoError(t, err)
	assert.Empty(t, res.SubSector)
	assert.Equal(t, "", res.Sector)
}

func TestResolveEmitenNewsFallback(t *testing.T) {
	pool := llmtest.New().
		On("company_names", `{"company": ["No Company Found"]}`).
		On("tickers", `{"tickers": ["BMRI", "bbca.jk", "ZZZZ"]}`)
	fetcher := &fakeFetcher{body: "Saham BMRI dan BBCA menguat."}
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), fetcher, zerolog.Nop())

	tickers, err := r.ResolveTickers(context.Background(), "Saham bank menguat.", "Bank naik", "https://emitennews.com/news/123")

	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, []string{"BMRI.JK", "BBCA.JK"}, tickers)
	assert.Contains(t, pool.LastPrompt("tickers"), "Saham BMRI dan BBCA menguat.")
}

func TestResolveFallbackOnlyForListedSources(t *testing.T) {
	pool := llmtest.New().On("company_names", `{"company": []}`)
	fetcher := &fakeFetcher{body: "BBCA"}
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), fetcher, zerolog.Nop())

	tickers, err := r.ResolveTickers(context.Background(), "body", "title", "https://bisnis.com/x")
	require.NoError(t, err)
	assert.Empty(t, tickers)
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, pool.Calls("tickers"))
}

func TestResolveFallbackFetchFailure(t *testing.T) {
	pool := llmtest.New().On("company_names", `{"company": []}`)
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), fetcher, zerolog.Nop())

	tickers, err := r.ResolveTickers(context.Background(), "body", "title", "https://emitennews.com/news/9")
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestResolveExtractionFailure(t *testing.T) {
	pool := llmtest.New().Fail("company_names", llm.ErrExhausted)
	r := NewWithConfig(ResolverConfig{}, pool, testCatalog(t), nil, zerolog.Nop())

	_, err := r.Resolve(context.Background(), Input{Body: "x"})
	assert.ErrorIs(t, err, llm.ErrExhausted)
}

func TestCanonicalCheck(t *testing.T) {
	r := NewWithConfig(ResolverConfig{}, llmtest.New(), testCatalog(t), nil, zerolog.Nop())

	// a symbol can match the index yet be missing from the canonical records
	assert.Equal(t, []string{"BBCA.JK"}, r.canonical([]string{"BBCA", "GOTO.JK", "BBCA.JK"}))
	assert.Equal(t, []string{}, r.canonical(nil))
}

func TestMatchNamesNormalizes(t *testing.T) {
	r := NewWithConfig(ResolverConfig{}, llmtest.New(), testCatalog(t), nil, zerolog.Nop())

	assert.Equal(t, []string{"BMRI.JK"}, r.MatchNames([]string{"PT  Bank Mandiri (Persero) Tbk."}))
	assert.Equal(t, []string{"BBCA.JK"}, r.MatchNames([]string{"bank central asia", "PT Bank Central Asia Tbk"}))
	assert.Empty(t, r.MatchNames([]string{"", "Telkom Indonesia"}))
}
