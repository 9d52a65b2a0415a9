package types

import (
	"context"
	"time"

	"github.com/xhad/newsflow/internal/models"
)

// Store is the persistent article store.
type Store interface {
	ExistingSources(ctx context.Context, table string) ([]string, error)
	Insert(ctx context.Context, table string, articles []models.EnrichedArticle) error
	FetchOlderThan(ctx context.Context, table string, cutoff time.Time) ([]map[string]interface{}, error)
	DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) error
}

// CatalogSource serves reference data used to refresh the on-disk catalogs.
type CatalogSource interface {
	CompanyProfiles(ctx context.Context, market string) ([]models.Company, error)
	SubsectorDescriptions(ctx context.Context) (map[string]string, error)
}

// BodyFetcher extracts readable article text from a URL.
type BodyFetcher interface {
	FetchBody(ctx context.Context, url string) (string, error)
	ExpandTables(ctx context.Context, url string) string
}
