// Package store persists enriched articles and serves catalog reference data.
package store

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/types"
	"github.com/xhad/newsflow/pkg/config"
)

// Backend is a store that also serves catalog data.
type Backend interface {
	types.Store
	types.CatalogSource
	Close()
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// New builds the backend selected by cfg.Store.Backend.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Backend, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return NewPostgres(ctx, PostgresConfig{ConnString: cfg.Store.DatabaseURL}, logger)
	case "rest", "":
		return NewRest(RestConfig{URL: cfg.Store.URL, Key: cfg.Store.Key}, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
