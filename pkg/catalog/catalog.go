// Package catalog holds the reference data the classifier and resolver validate against:
// tags, sub-sectors, sectors and the canonical company index for one market.
//
// Companies and sub-sector descriptions are cached as JSON under the data directory
// and refreshed from the store on the days their cron schedule fires.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/fileutil"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/internal/types"
)

const (
	tagsFile       = "unique_tags.json"
	subsectorsFile = "subsectors_data.json"
	sectorsFile    = "sectors_data.json"
)

type CatalogConfig struct {
	DataDir           string
	Market            string
	CompaniesRefresh  string
	SubsectorsRefresh string
	Now               func() time.Time
}

type Catalog struct {
	Market     Market
	Tags       []models.Tag
	Subsectors map[string]string
	Companies  map[string]models.Company
	Sectors    map[string]string
	Tickers    *TickerIndex

	tagSet map[string]struct{}
}

// Load reads every catalog for the configured market. Missing tag or company data is fatal.
func Load(ctx context.Context, config CatalogConfig, source types.CatalogSource, logger zerolog.Logger) (*Catalog, error) {
	if config.DataDir == "" {
		config.DataDir = "./data"
	}
	if config.Market == "" {
		config.Market = "idx"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	market, err := MarketFor(config.Market)
	if err != nil {
		return nil, err
	}

	loader := &loader{config: config, source: source, logger: logger, market: market}

	tags, err := loader.loadTags()
	if err != nil {
		return nil, err
	}
	subsectors, err := loader.loadSubsectors(ctx)
	if err != nil {
		return nil, err
	}
	companies, err := loader.loadCompanies(ctx)
	if err != nil {
		return nil, err
	}
	sectors := loader.loadSectors()

	c := New(market, tags, subsectors, companies, sectors)
	logger.Info().
		Str("market", market.Name).
		Int("tags", len(c.Tags)).
		Int("subsectors", len(c.Subsectors)).
		Int("companies", len(c.Companies)).
		Int("tickers", c.Tickers.Len()).
		Msg("catalogs loaded")
	return c, nil
}

// New builds a catalog from in-memory data.
func New(market Market, tags []models.Tag, subsectors map[string]string, companies map[string]models.Company, sectors map[string]string) *Catalog {
	c := &Catalog{
		Market:     market,
		Tags:       tags,
		Subsectors: subsectors,
		Companies:  companies,
		Sectors:    sectors,
		tagSet:     make(map[string]struct{}, len(tags)),
	}
	if c.Subsectors == nil {
		c.Subsectors = map[string]string{}
	}
	if c.Companies == nil {
		c.Companies = map[string]models.Company{}
	}
	if c.Sectors == nil {
		c.Sectors = map[string]string{}
	}
	for _, tag := range tags {
		c.tagSet[tag.Name] = struct{}{}
	}
	c.Tickers = NewTickerIndex(market, c.Companies)
	return c
}

func (c *Catalog) HasTag(name string) bool {
	_, ok := c.tagSet[name]
	return ok
}

func (c *Catalog) HasSubsector(slug string) bool {
	_, ok := c.Subsectors[slug]
	return ok
}

// Canonical returns the suffixed symbol when it exists in the company index.
func (c *Catalog) Canonical(ticker string) (string, bool) {
	symbol := c.Market.WithSuffix(ticker)
	_, ok := c.Companies[symbol]
	return symbol, ok
}

// SectorOf returns the sector of the first sub-sector that has one.
func (c *Catalog) SectorOf(subsectors []string) string {
	for _, sub := range subsectors {
		if sector, ok := c.Sectors[sub]; ok {
			return sector
		}
	}
	return ""
}

// TagPrompt lists tags as "name : description" blocks.
func (c *Catalog) TagPrompt() string {
	lines := make([]string, 0, len(c.Tags))
	for _, tag := range c.Tags {
		lines = append(lines, tag.Name+" : "+tag.Description)
	}
	return strings.Join(lines, "\n\n")
}

// SubsectorPrompt lists sub-sectors as "slug:description" blocks sorted by slug.
// shorten trims each description.
func (c *Catalog) SubsectorPrompt(shorten func(string) string) string {
	slugs := make([]string, 0, len(c.Subsectors))
	for slug := range c.Subsectors {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	lines := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		desc := c.Subsectors[slug]
		if shorten != nil {
			desc = shorten(desc)
		}
		lines = append(lines, slug+":"+desc)
	}
	return strings.Join(lines, "\n\n")
}

// Slugify turns a sub-sector display name into its slug.
// "Oil, Gas & Coal" becomes "oil-gas-coal".
func Slugify(name string) string {
	name = strings.ReplaceAll(name, "&", "")
	name = strings.ReplaceAll(name, ",", "")
	name = strings.ReplaceAll(name, "  ", " ")
	name = strings.ReplaceAll(name, " ", "-")
	return strings.ToLower(name)
}

type loader struct {
	config CatalogConfig
	source types.CatalogSource
	market Market
	logger zerolog.Logger
}

func (l *loader) path(name string) string {
	return filepath.Join(l.config.DataDir, name)
}

func (l *loader) loadTags() ([]models.Tag, error) {
	var file struct {
		Tags []models.Tag `json:"tags"`
	}
	if err := fileutil.ReadJSON(l.path(tagsFile), &file); err != nil {
		return nil, fmt.Errorf("failed to load tag catalog: %w", err)
	}
	return file.Tags, nil
}

func (l *loader) loadSectors() map[string]string {
	sectors := map[string]string{}
	if err := fileutil.ReadJSON(l.path(sectorsFile), &sectors); err != nil {
		l.logger.Warn().Err(err).Msg("sectors data not available, sectors will be empty")
		return map[string]string{}
	}
	return sectors
}

func (l *loader) loadSubsectors(ctx context.Context) (map[string]string, error) {
	path := l.path(subsectorsFile)
	if l.shouldRefresh(l.config.SubsectorsRefresh, path) {
		subsectors, err := l.source.SubsectorDescriptions(ctx)
		if err == nil {
			if err := fileutil.WriteJSON(path, subsectors); err != nil {
				l.logger.Warn().Err(err).Msg("failed to cache sub-sectors")
			}
			return subsectors, nil
		}
		l.logger.Warn().Err(err).Msg("failed to refresh sub-sectors, using cache")
	}

	subsectors := map[string]string{}
	if err := fileutil.ReadJSON(path, &subsectors); err != nil {
		return nil, fmt.Errorf("failed to load sub-sector catalog: %w", err)
	}
	return subsectors, nil
}

func (l *loader) loadCompanies(ctx context.Context) (map[string]models.Company, error) {
	path := l.path(l.market.CompaniesFile)
	if l.shouldRefresh(l.config.CompaniesRefresh, path) {
		profiles, err := l.source.CompanyProfiles(ctx, l.market.Name)
		if err == nil {
			companies := make(map[string]models.Company, len(profiles))
			for _, p := range profiles {
				p.SubSector = Slugify(p.SubSector)
				companies[p.Symbol] = p
			}
			if err := fileutil.WriteJSON(path, companies); err != nil {
				l.logger.Warn().Err(err).Msg("failed to cache companies")
			}
			return companies, nil
		}
		l.logger.Warn().Err(err).Msg("failed to refresh companies, using cache")
	}

	companies := map[string]models.Company{}
	if err := fileutil.ReadJSON(path, &companies); err != nil {
		return nil, fmt.Errorf("failed to load company catalog: %w", err)
	}
	return companies, nil
}

// shouldRefresh is true when the schedule fires today or the cache file is missing.
func (l *loader) shouldRefresh(spec, path string) bool {
	if l.source == nil {
		return false
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return true
	}
	due, err := RefreshDue(spec, l.config.Now())
	if err != nil {
		l.logger.Warn().Err(err).Str("schedule", spec).Msg("invalid refresh schedule")
		return false
	}
	return due
}

// RefreshDue reports whether spec has an activation on the calendar day of now.
func RefreshDue(spec string, now time.Time) (bool, error) {
	if spec == "" {
		return false, nil
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return false, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := schedule.Next(day.Add(-time.Second))
	return next.Before(day.AddDate(0, 0, 1)), nil
}
