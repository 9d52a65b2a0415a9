package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the collector timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// RawItem is what a collector produced for one article. Source is its natural key.
type RawItem struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// PublishedAt parses the item timestamp. A "T" separator is accepted.
func (r RawItem) PublishedAt() (time.Time, error) {
	return ParseTimestamp(r.Timestamp)
}

func ParseTimestamp(value string) (time.Time, error) {
	value = strings.Replace(strings.TrimSpace(value), "T", " ", 1)
	t, err := time.ParseInLocation(TimestampLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

type DimensionScores struct {
	Valuation      int `json:"valuation"`
	Future         int `json:"future"`
	Technical      int `json:"technical"`
	Financials     int `json:"financials"`
	Dividend       int `json:"dividend"`
	Management     int `json:"management"`
	Ownership      int `json:"ownership"`
	Sustainability int `json:"sustainability"`
}

// EnrichedArticle is the record submitted to the store.
type EnrichedArticle struct {
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Score     int              `json:"score"`
	Tags      []string         `json:"tags"`
	Tickers   []string         `json:"tickers"`
	SubSector []string         `json:"sub_sector"`
	Sector    string           `json:"sector"`
	Dimension *DimensionScores `json:"dimension"`
}

// Company is one entry of the canonical company index, keyed by its full symbol.
type Company struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	SubSector string `json:"sub_sector"`
}

// Tag is one entry of the tag catalog.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
