package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNoContent is returned when no layer produced a long enough body.
var ErrNoContent = errors.New("no article content extracted")

const (
	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Mobile Safari/537.36"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
)

type ScraperConfig struct {
	RateLimit     float64 // requests per second
	Timeout       time.Duration
	TableTimeout  time.Duration
	Proxy         string
	UserAgent     string
	MinBodyLength int
	TableHosts    []string
	OnProgress    func(url string)
}

// layer is one fetch strategy. Layers are tried in order.
type layer struct {
	name        string
	client      *http.Client
	userAgent   string
	domFallback bool
}

type Scraper struct {
	config  ScraperConfig
	layers  []layer
	tables  *http.Client
	limiter *rate.Limiter
	policy  *bluemonday.Policy
	strict  *bluemonday.Policy
	logger  zerolog.Logger
}

var (
	mainSelectors = []string{
		"article",
		"[itemprop=articleBody]",
		"main",
		".detail__body-text",
		".read__content",
		".entry-content",
		".article-content",
	}

	relatedNewsRegex = regexp.MustCompile(`(?is)berita\s+terkait.*`)
)

func NewWithConfig(config ScraperConfig, logger zerolog.Logger) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.TableTimeout == 0 {
		config.TableTimeout = 5 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 0.2
	}
	if config.UserAgent == "" {
		config.UserAgent = mobileUserAgent
	}
	if config.MinBodyLength == 0 {
		config.MinBodyLength = 100
	}
	if len(config.TableHosts) == 0 {
		config.TableHosts = []string{"datawrapper.dwcdn.net"}
	}

	proxied := &http.Client{Timeout: config.Timeout}
	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy: %w", err)
		}
		proxied.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	direct := &http.Client{Timeout: config.Timeout}

	return &Scraper{
		config: config,
		layers: []layer{
			{name: "proxy", client: proxied, userAgent: config.UserAgent, domFallback: true},
			{name: "browser", client: direct, userAgent: browserUserAgent},
			{name: "direct", client: direct},
		},
		tables:  &http.Client{Timeout: config.TableTimeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		policy:  bluemonday.UGCPolicy(),
		strict:  bluemonday.StrictPolicy(),
		logger:  logger,
	}, nil
}

// FetchBody returns the readable text of the article at pageURL.
func (s *Scraper) FetchBody(ctx context.Context, pageURL string) (string, error) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(pageURL)
	}
	log := s.logger.With().Str("source", pageURL).Logger()

	if strings.Contains(pageURL, "bcasekuritas.co.id") {
		body, err := s.fetchBCA(ctx, pageURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to extract article")
			return "", fmt.Errorf("%w: %v", ErrNoContent, err)
		}
		if utf8.RuneCountInString(body) < s.config.MinBodyLength {
			return "", fmt.Errorf("%w: %s", ErrNoContent, pageURL)
		}
		return body, nil
	}

	for _, l := range s.layers {
		text, err := s.extract(ctx, l, pageURL)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			log.Warn().Err(err).Str("layer", l.name).Msg("extraction failed, trying next layer")
			continue
		}

		text = applySiteRules(pageURL, text)
		if utf8.RuneCountInString(text) > s.config.MinBodyLength {
			log.Debug().Str("layer", l.name).Int("length", len(text)).Msg("article extracted")
			return text, nil
		}
		log.Info().Str("layer", l.name).Msg("extracted text too short, trying next layer")
	}

	return "", fmt.Errorf("%w: %s", ErrNoContent, pageURL)
}

func (s *Scraper) extract(ctx context.Context, l layer, pageURL string) (string, error) {
	doc, err := s.getDocument(ctx, l.client, pageURL, l.userAgent)
	if err != nil {
		return "", err
	}

	text := s.extractMainContent(doc, pageURL)
	if text == "" && l.domFallback {
		text = extractFallbackContent(doc)
	}
	return text, nil
}

func (s *Scraper) getDocument(ctx context.Context, client *http.Client, pageURL, userAgent string) (*goquery.Document, error) {
	resp, err := s.get(ctx, client, pageURL, userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) get(ctx context.Context, client *http.Client, pageURL, userAgent string) (*http.Response, error) {
	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Cache-Control", "max-age=0")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, pageURL)
	}
	return resp, nil
}

func (s *Scraper) extractMainContent(doc *goquery.Document, pageURL string) string {
	doc.Find("script, style, noscript, nav, aside, footer, form, iframe").Remove()

	for _, selector := range mainSelectors {
		selected := doc.Find(selector).First()
		if selected.Length() == 0 {
			continue
		}
		if text := s.toText(selected, pageURL); text != "" {
			return text
		}
	}
	return ""
}

// toText renders a container as markdown so paragraphs and tables survive.
func (s *Scraper) toText(selection *goquery.Selection, pageURL string) string {
	raw, err := goquery.OuterHtml(selection)
	if err != nil {
		return ""
	}

	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(s.policy.Sanitize(raw))
	if err != nil {
		s.logger.Debug().Err(err).Msg("markdown conversion failed")
		return ""
	}
	return strings.TrimSpace(markdown)
}

// extractFallbackContent covers sites whose markup defeats the main extractor.
func extractFallbackContent(doc *goquery.Document) string {
	for _, selector := range []string{"div.content", "div.wrap__article-detail"} {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return collapse(text)
		}
	}

	kontan := doc.Find("div.tmpt-desk-kon").First()
	if kontan.Length() == 0 {
		return ""
	}
	kontan.Find("p").Each(func(_ int, p *goquery.Selection) {
		p.Find("strong").EachWithBreak(func(_ int, strong *goquery.Selection) bool {
			if strings.Contains(strong.Text(), "Baca Juga:") {
				p.Remove()
				return false
			}
			return true
		})
	})
	text := collapse(kontan.Text())
	return strings.TrimSpace(relatedNewsRegex.ReplaceAllString(text, ""))
}

func applySiteRules(pageURL, text string) string {
	if strings.Contains(pageURL, "www.straitstimes") {
		text = strings.ReplaceAll(text, "Sign up now: Get ST's newsletters delivered to your inbox", "")
	}
	return strings.TrimSpace(text)
}

func (s *Scraper) fetchBCA(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.getDocument(ctx, s.layers[1].client, pageURL, browserUserAgent)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	container := doc.Find("div.prose").First()
	if container.Length() == 0 {
		s.logger.Info().Str("source", pageURL).Msg("could not find div.prose")
		return "", nil
	}

	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" && text != "@" {
			parts = append(parts, text)
		}
	})

	body := strings.ReplaceAll(strings.Join(parts, "\n\n"), "IQPlus,", "")
	return title + "\n" + body, nil
}

// ExpandTables renders embedded chart tables of a page as plain text rows.
// It returns an empty string when the page has none or cannot be read.
func (s *Scraper) ExpandTables(ctx context.Context, pageURL string) string {
	log := s.logger.With().Str("source", pageURL).Logger()

	doc, err := s.getDocument(ctx, s.layers[1].client, pageURL, browserUserAgent)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load page for tables")
		return ""
	}

	var sources []string
	doc.Find("iframe[src]").Each(func(_ int, iframe *goquery.Selection) {
		src, _ := iframe.Attr("src")
		if s.isTableHost(src) {
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			sources = append(sources, src)
		}
	})

	var buffer []string
	for _, src := range sources {
		if table, err := s.fetchDataset(ctx, src); err == nil {
			buffer = append(buffer, table)
			continue
		}

		title, err := s.fetchChartTitle(ctx, src)
		if err != nil {
			log.Info().Err(err).Str("chart", src).Msg("failed to expand chart")
			return ""
		}
		buffer = append(buffer, fmt.Sprintf("\n[Chart/Table: %s] (Data extraction failed, view at %s)\n", title, src))
	}

	return strings.Join(buffer, "\n")
}

func (s *Scraper) isTableHost(src string) bool {
	for _, host := range s.config.TableHosts {
		if strings.Contains(src, host) {
			return true
		}
	}
	return false
}

func (s *Scraper) fetchDataset(ctx context.Context, src string) (string, error) {
	csvURL := src + "/dataset.csv"
	if strings.HasSuffix(src, "/") {
		csvURL = src + "dataset.csv"
	}

	resp, err := s.get(ctx, s.tables, csvURL, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table strings.Builder
	table.WriteString("\nDetail each company in a table form:\n")
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse dataset: %w", err)
		}
		table.WriteString(strings.Join(row, " | "))
		table.WriteString("\n")
	}
	return table.String(), nil
}

func (s *Scraper) fetchChartTitle(ctx context.Context, src string) (string, error) {
	doc, err := s.getDocument(ctx, s.tables, src, "")
	if err != nil {
		return "", err
	}
	title := s.strict.Sanitize(doc.Find("title").First().Text())
	return strings.TrimSpace(html.UnescapeString(title)), nil
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
