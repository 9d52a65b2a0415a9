package catalog

import (
	"sort"
	"strings"

	"github.com/xhad/newsflow/internal/models"
)

// IndexEntry maps a normalized company name to its symbol.
type IndexEntry struct {
	Name   string
	Symbol string
}

// TickerIndex is read-only after construction and safe for concurrent use.
type TickerIndex struct {
	market  Market
	entries []IndexEntry
}

func NewTickerIndex(market Market, companies map[string]models.Company) *TickerIndex {
	keys := make([]string, 0, len(companies))
	for key := range companies {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// the first symbol wins when two names normalize alike
	byName := make(map[string]string, len(companies))
	for _, key := range keys {
		company := companies[key]
		symbol := strings.TrimSpace(company.Symbol)
		if symbol == "" || company.Name == "" {
			continue
		}
		name := market.Normalize(company.Name)
		if _, seen := byName[name]; !seen {
			byName[name] = symbol
		}
	}

	entries := make([]IndexEntry, 0, len(byName))
	for name, symbol := range byName {
		entries = append(entries, IndexEntry{Name: name, Symbol: symbol})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return &TickerIndex{market: market, entries: entries}
}

// Entries are sorted by name so matching is deterministic.
func (t *TickerIndex) Entries() []IndexEntry {
	return t.entries
}

// Len is the number of indexed companies.
func (t *TickerIndex) Len() int {
	return len(t.entries)
}
