package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/newsflow/internal/models"
)

type fakeSource struct {
	companies  []models.Company
	subsectors map[string]string
	err        error
	calls      int
}

func (f *fakeSource) CompanyProfiles(ctx context.Context, market string) ([]models.Company, error) {
	f.calls++
	return f.companies, f.err
}

func (f *fakeSource) SubsectorDescriptions(ctx context.Context) (map[string]string, error) {
	f.calls++
	return f.subsectors, f.err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "unique_tags.json"), `{"tags": [
		{"name": "IPO", "description": "Upcoming initial public offerings"},
		{"name": "Dividend", "description": "Dividend announcements"}
	]}`)
	writeFile(t, filepath.Join(dir, "subsectors_data.json"), `{
		"banks": "Banks take deposits. They lend to businesses. They also sell insurance.",
		"coal": "Coal miners."
	}`)
	writeFile(t, filepath.Join(dir, "sectors_data.json"), `{"banks": "Financials", "coal": "Energy"}`)
	writeFile(t, filepath.Join(dir, "idx", "companies.json"), `{
		"BBCA.JK": {"symbol": "BBCA.JK", "name": "PT Bank Central Asia Tbk", "sub_sector": "banks"},
		"PTBA.JK": {"symbol": "PTBA.JK", "name": "PT Bukit Asam (Persero) Tbk", "sub_sector": "coal"}
	}`)
	return dir
}

func fixedNow(day int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.October, day, 9, 30, 0, 0, time.UTC)
	}
}

func TestLoadFromCache(t *testing.T) {
	dir := seedDataDir(t)
	source := &fakeSource{}

	c, err := Load(context.Background(), CatalogConfig{
		DataDir:           dir,
		Market:            "idx",
		CompaniesRefresh:  "0 0 1,15 * *",
		SubsectorsRefresh: "0 0 1,15 * *",
		Now:               fixedNow(3),
	}, source, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 0, source.calls)
	assert.Len(t, c.Tags, 2)
	assert.True(t, c.HasTag("IPO"))
	assert.False(t, c.HasTag("Crypto"))
	assert.True(t, c.HasSubsector("banks"))
	assert.Len(t, c.Companies, 2)
	assert.Equal(t, 2, c.Tickers.Len())
	assert.Equal(t, "Financials", c.SectorOf([]string{"unknown", "banks"}))
}

func TestLoadRefreshesWhenDue(t *testing.T) {
	dir := seedDataDir(t)
	source := &fakeSource{
		companies: []models.Company{
			{Symbol: "ADRO.JK", Name: "PT Alamtri Resources Indonesia Tbk", SubSector: "Oil, Gas & Coal"},
		},
		subsectors: map[string]string{"oil-gas-coal": "Energy producers."},
	}

	c, err := Load(context.Background(), CatalogConfig{
		DataDir:           dir,
		CompaniesRefresh:  "0 0 1,15 * *",
		SubsectorsRefresh: "0 0 1,15 * *",
		Now:               fixedNow(15),
	}, source, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
	require.Contains(t, c.Companies, "ADRO.JK")
	assert.Equal(t, "oil-gas-coal", c.Companies["ADRO.JK"].SubSector)
	assert.Equal(t, map[string]string{"oil-gas-coal": "Energy producers."}, c.Subsectors)

	cached, err := os.ReadFile(filepath.Join(dir, "idx", "companies.json"))
	require.NoError(t, err)
	assert.Contains(t, string(cached), `"sub_sector": "oil-gas-coal"`)
}

func TestLoadRefreshFailureUsesCache(t *testing.T) {
	dir := seedDataDir(t)
	source := &fakeSource{err: errors.New("store unavailable")}

	c, err := Load(context.Background(), CatalogConfig{
		DataDir:           dir,
		CompaniesRefresh:  "0 0 1,15 * *",
		SubsectorsRefresh: "0 0 1,15 * *",
		Now:               fixedNow(1),
	}, source, zerolog.Nop())

	require.NoError(t, err)
	assert.Contains(t, c.Companies, "BBCA.JK")
}

func TestLoadMissingCatalogs(t *testing.T) {
	dir := seedDataDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "unique_tags.json")))

	_, err := Load(context.Background(), CatalogConfig{DataDir: dir, Now: fixedNow(3)}, nil, zerolog.Nop())
	assert.Error(t, err)

	dir = seedDataDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "sectors_data.json")))
	c, err := Load(context.Background(), CatalogConfig{DataDir: dir, Now: fixedNow(3)}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, c.Sectors)

	_, err = Load(context.Background(), CatalogConfig{DataDir: dir, Market: "sgx", Now: fixedNow(3)}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = Load(context.Background(), CatalogConfig{DataDir: dir, Market: "nyse"}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRefreshDue(t *testing.T) {
	tests := []struct {
		spec string
		day  int
		want bool
	}{
		{"0 0 1,15 * *", 1, true},
		{"0 0 1,15 * *", 15, true},
		{"0 0 1,15 * *", 14, false},
		{"0 0 1 * *", 2, false},
		{"", 1, false},
	}

	for _, tt := range tests {
		got, err := RefreshDue(tt.spec, fixedNow(tt.day)())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s on day %d", tt.spec, tt.day)
	}

	_, err := RefreshDue("not a cron", time.Now())
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	c := New(markets["idx"],
		[]models.Tag{{Name: "IPO", Description: "Upcoming offerings"}, {Name: "Bonds", Description: "Debt issuance"}},
		map[string]string{"coal": "Coal miners. Exporters too. And more.", "banks": "Lenders."},
		nil, nil)

	assert.Equal(t, "IPO : Upcoming offerings\n\nBonds : Debt issuance", c.TagPrompt())
	assert.Equal(t, "banks:Lenders.\n\ncoal:Coal miners. Exporters too.", c.SubsectorPrompt(func(s string) string {
		if s == "Coal miners. Exporters too. And more." {
			return "Coal miners. Exporters too."
		}
		return s
	}))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "oil-gas-coal", Slugify("Oil, Gas & Coal"))
	assert.Equal(t, "banks", Slugify("Banks"))
	assert.Equal(t, "oil-gas-coal", Slugify("oil-gas-coal"))
}
