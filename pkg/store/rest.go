package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/models"
)

type RestConfig struct {
	URL      string
	Key      string
	Timeout  time.Duration
	PageSize int
}

// Rest is a client for the hosted store's REST interface.
type Rest struct {
	config RestConfig
	client *http.Client
	logger zerolog.Logger
}

func NewRest(config RestConfig, logger zerolog.Logger) (*Rest, error) {
	if config.URL == "" || config.Key == "" {
		return nil, fmt.Errorf("store URL and key are required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PageSize == 0 {
		config.PageSize = 1000
	}
	config.URL = strings.TrimRight(config.URL, "/")

	return &Rest{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

func (r *Rest) ExistingSources(ctx context.Context, table string) ([]string, error) {
	var sources []string
	for offset := 0; ; offset += r.config.PageSize {
		var page []struct {
			Source string `json:"source"`
		}
		query := url.Values{
			"select": {"source"},
			"limit":  {strconv.Itoa(r.config.PageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		if err := r.do(ctx, http.MethodGet, table, query, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch sources: %w", err)
		}
		for _, row := range page {
			sources = append(sources, row.Source)
		}
		if len(page) < r.config.PageSize {
			return sources, nil
		}
	}
}

func (r *Rest) Insert(ctx context.Context, table string, articles []models.EnrichedArticle) error {
	if len(articles) == 0 {
		return nil
	}
	clean := make([]models.EnrichedArticle, len(articles))
	for i, a := range articles {
		a.Title = sanitizeUTF8(a.Title)
		a.Body = sanitizeUTF8(a.Body)
		clean[i] = a
	}
	if err := r.do(ctx, http.MethodPost, table, nil, clean, nil); err != nil {
		return fmt.Errorf("failed to insert articles: %w", err)
	}
	return nil
}

func (r *Rest) FetchOlderThan(ctx context.Context, table string, cutoff time.Time) ([]map[string]interface{}, error) {
	query := url.Values{
		"select":     {"*"},
		"created_at": {"lte." + cutoff.UTC().Format(time.RFC3339)},
	}
	var rows []map[string]interface{}
	if err := r.do(ctx, http.MethodGet, table, query, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch outdated rows: %w", err)
	}
	return rows, nil
}

func (r *Rest) DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) error {
	query := url.Values{"created_at": {"lte." + cutoff.UTC().Format(time.RFC3339)}}
	if err := r.do(ctx, http.MethodDelete, table, query, nil, nil); err != nil {
		return fmt.Errorf("failed to delete outdated rows: %w", err)
	}
	return nil
}

func (r *Rest) CompanyProfiles(ctx context.Context, market string) ([]models.Company, error) {
	switch market {
	case "idx":
		return r.idxCompanies(ctx)
	case "sgx":
		var rows []struct {
			Symbol    string `json:"symbol"`
			Name      string `json:"name"`
			SubSector string `json:"sub_sector"`
		}
		query := url.Values{"select": {"symbol,name,sub_sector"}}
		if err := r.do(ctx, http.MethodGet, "sgx_company_report", query, nil, &rows); err != nil {
			return nil, fmt.Errorf("failed to fetch companies: %w", err)
		}
		companies := make([]models.Company, 0, len(rows))
		for _, row := range rows {
			companies = append(companies, models.Company{Symbol: row.Symbol, Name: row.Name, SubSector: row.SubSector})
		}
		return companies, nil
	default:
		return nil, fmt.Errorf("unknown market %q", market)
	}
}

func (r *Rest) idxCompanies(ctx context.Context) ([]models.Company, error) {
	var profiles []struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"company_name"`
		SubSectorID int    `json:"sub_sector_id"`
	}
	query := url.Values{"select": {"symbol,company_name,sub_sector_id"}}
	if err := r.do(ctx, http.MethodGet, "idx_company_profile", query, nil, &profiles); err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}

	var subsectors []struct {
		SubSectorID int    `json:"sub_sector_id"`
		SubSector   string `json:"sub_sector"`
	}
	query = url.Values{"select": {"sub_sector_id,sub_sector"}}
	if err := r.do(ctx, http.MethodGet, "idx_subsector_metadata", query, nil, &subsectors); err != nil {
		return nil, fmt.Errorf("failed to fetch sub-sectors: %w", err)
	}
	names := make(map[int]string, len(subsectors))
	for _, s := range subsectors {
		names[s.SubSectorID] = s.SubSector
	}

	companies := make([]models.Company, 0, len(profiles))
	for _, p := range profiles {
		companies = append(companies, models.Company{
			Symbol:    p.Symbol,
			Name:      p.CompanyName,
			SubSector: names[p.SubSectorID],
		})
	}
	return companies, nil
}

func (r *Rest) SubsectorDescriptions(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	query := url.Values{"select": {"slug,description"}}
	if err := r.do(ctx, http.MethodGet, "idx_subsector_metadata", query, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch sub-sector descriptions: %w", err)
	}
	descriptions := make(map[string]string, len(rows))
	for _, row := range rows {
		descriptions[row.Slug] = row.Description
	}
	return descriptions, nil
}

func (r *Rest) Close() {
	r.client.CloseIdleConnections()
}

// do sends one request to {URL}/rest/v1/{table}. Any 2xx status is success.
func (r *Rest) do(ctx context.Context, method, table string, query url.Values, body, out interface{}) error {
	if err := checkTable(table); err != nil {
		return err
	}
	endpoint := r.config.URL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", r.config.Key)
	req.Header.Set("Authorization", "Bearer "+r.config.Key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	r.logger.Debug().Str("method", method).Str("table", table).Int("status", resp.StatusCode).Msg("store request")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
