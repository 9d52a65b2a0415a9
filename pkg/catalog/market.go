package catalog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Market describes one exchange the pipeline enriches news for.
type Market struct {
	Name          string
	Exchange      string
	TickerSuffix  string
	CompaniesFile string
	normalizers   []replacement
}

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

var markets = map[string]Market{
	"idx": {
		Name:          "idx",
		Exchange:      "Indonesia Stock Exchange (IDX)",
		TickerSuffix:  ".JK",
		CompaniesFile: filepath.Join("idx", "companies.json"),
		normalizers: []replacement{
			{regexp.MustCompile(`(?i)^\s*PT\s+`), ""},
			{regexp.MustCompile(`(?i)\s*Tbk\.?$`), ""},
			{regexp.MustCompile(`(?i)\s*\(Persero\)\s*`), " "},
		},
	},
	"sgx": {
		Name:          "sgx",
		Exchange:      "Singapore Exchange (SGX)",
		TickerSuffix:  ".SI",
		CompaniesFile: filepath.Join("sgx", "sgx_companies.json"),
		normalizers: []replacement{
			{regexp.MustCompile(`(?i)\s*Ltd\.?$`), ""},
		},
	},
}

func MarketFor(name string) (Market, error) {
	m, ok := markets[strings.ToLower(name)]
	if !ok {
		return Market{}, fmt.Errorf("unknown market %q", name)
	}
	return m, nil
}

// Normalize strips legal prefixes and suffixes, collapses whitespace and lowercases.
// "PT Bank Central Asia Tbk" becomes "bank central asia".
func (m Market) Normalize(name string) string {
	for _, r := range m.normalizers {
		name = r.pattern.ReplaceAllString(name, r.with)
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// WithSuffix appends the market ticker suffix unless it is already there.
func (m Market) WithSuffix(ticker string) string {
	ticker = strings.TrimSpace(ticker)
	if strings.HasSuffix(strings.ToUpper(ticker), m.TickerSuffix) {
		return ticker
	}
	return ticker + m.TickerSuffix
}

// StripSuffix returns the bare lowercase symbol.
func (m Market) StripSuffix(ticker string) string {
	lower := strings.ToLower(strings.TrimSpace(ticker))
	return strings.TrimSpace(strings.TrimSuffix(lower, strings.ToLower(m.TickerSuffix)))
}
