package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/types"
	"github.com/xhad/newsflow/pkg/catalog"
	"github.com/xhad/newsflow/pkg/llm"
)

// DefaultThreshold is the similarity a candidate must exceed to match.
const DefaultThreshold = 95.0

type ResolverConfig struct {
	Threshold float64
	// FullBodySources are URL prefixes whose full article is re-read for
	// ticker symbols when no company name resolves.
	FullBodySources []string
}

type Resolver struct {
	config  ResolverConfig
	pool    llm.Completer
	catalog *catalog.Catalog
	fetcher types.BodyFetcher
	logger  zerolog.Logger
}

// Input is an enriched article as far as the classifier got it.
type Input struct {
	Title      string
	Body       string
	Source     string
	Subsectors []string
}

type Resolution struct {
	Tickers   []string
	SubSector []string
	Sector    string
}

func NewWithConfig(config ResolverConfig, pool llm.Completer, cat *catalog.Catalog, fetcher types.BodyFetcher, logger zerolog.Logger) *Resolver {
	if config.Threshold == 0 {
		config.Threshold = DefaultThreshold
	}
	if config.FullBodySources == nil {
		config.FullBodySources = []string{"https://emitennews.com/news/"}
	}
	return &Resolver{
		config:  config,
		pool:    pool,
		catalog: cat,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve finds the tickers of an article and derives its sub-sector and sector.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Resolution, error) {
	tickers, err := r.ResolveTickers(ctx, in.Body, in.Title, in.Source)
	if err != nil {
		return Resolution{}, err
	}

	sub := r.subSectors(tickers, in.Subsectors)
	return Resolution{
		Tickers:   tickers,
		SubSector: sub,
		Sector:    r.catalog.SectorOf(sub),
	}, nil
}

// ResolveTickers returns canonical symbols for the companies the article mentions.
// An empty list is a valid outcome.
func (r *Resolver) ResolveTickers(ctx context.Context, body, title, source string) ([]string, error) {
	log := r.logger.With().Str("source", source).Logger()

	names, err := r.extractCompanies(ctx, title+" "+body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract companies: %w", err)
	}
	matched := r.MatchNames(names)

	if len(matched) == 0 && r.fullBodySource(source) && r.fetcher != nil {
		log.Info().Msg("no company matched, reading tickers from full article")
		full, err := r.fetcher.FetchBody(ctx, source)
		if err != nil {
			log.Warn().Err(err).Msg("failed to fetch full article for tickers")
		} else {
			symbols, err := r.extractTickers(ctx, title+" "+full)
			if err != nil {
				return nil, fmt.Errorf("failed to extract tickers: %w", err)
			}
			matched = r.MatchSymbols(symbols)
		}
	}

	tickers := r.canonical(matched)
	log.Debug().Strs("companies", names).Strs("tickers", tickers).Msg("tickers resolved")
	return tickers, nil
}

// MatchNames maps extracted company names to index symbols.
// The ratio check runs first and the partial ratio is the fallback.
func (r *Resolver) MatchNames(names []string) []string {
	entries := r.catalog.Tickers.Entries()
	var matched []string
	for _, raw := range names {
		name := r.catalog.Market.Normalize(raw)
		if name == "" {
			continue
		}
		for _, entry := range entries {
			if Ratio(name, entry.Name) > r.config.Threshold ||
				PartialRatio(name, entry.Name) > r.config.Threshold {
				matched = append(matched, entry.Symbol)
				break
			}
		}
	}
	return dedupe(matched)
}

// MatchSymbols maps extracted ticker spellings to index symbols.
func (r *Resolver) MatchSymbols(symbols []string) []string {
	entries := r.catalog.Tickers.Entries()
	var matched []string
	for _, raw := range symbols {
		symbol := r.catalog.Market.StripSuffix(r.catalog.Market.Normalize(raw))
		if symbol == "" {
			continue
		}
		for _, entry := range entries {
			if Ratio(symbol, r.catalog.Market.StripSuffix(entry.Symbol)) > r.config.Threshold {
				matched = append(matched, entry.Symbol)
				break
			}
		}
	}
	return dedupe(matched)
}

// canonical keeps only symbols present in the company index.
func (r *Resolver) canonical(symbols []string) []string {
	checked := []string{}
	for _, raw := range symbols {
		if symbol, ok := r.catalog.Canonical(raw); ok {
			checked = append(checked, symbol)
		} else {
			r.logger.Debug().Str("ticker", raw).Msg("ticker not in company index, dropped")
		}
	}
	return dedupe(checked)
}

// subSectors uses the companies' sub-sectors when tickers resolved,
// and the classifier's first sub-sector otherwise.
func (r *Resolver) subSectors(tickers, classified []string) []string {
	if len(tickers) == 0 {
		if len(classified) == 0 {
			return []string{}
		}
		first := strings.ToLower(classified[0])
		if r.catalog.HasSubsector(first) {
			return []string{first}
		}
		return []string{}
	}

	var subs []string
	for _, ticker := range tickers {
		if company, ok := r.catalog.Companies[ticker]; ok && company.SubSector != "" {
			subs = append(subs, company.SubSector)
		}
	}
	return dedupe(subs)
}

func (r *Resolver) fullBodySource(source string) bool {
	for _, prefix := range r.config.FullBodySources {
		if strings.Contains(source, prefix) {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
