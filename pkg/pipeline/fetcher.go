package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/types"
	"github.com/xhad/newsflow/pkg/worker"
)

// pooledFetcher runs every fetch on the worker pool.
type pooledFetcher struct {
	workers *worker.Pool
	fetcher types.BodyFetcher
	logger  zerolog.Logger
}

func NewPooledFetcher(workers *worker.Pool, fetcher types.BodyFetcher, logger zerolog.Logger) types.BodyFetcher {
	return &pooledFetcher{workers: workers, fetcher: fetcher, logger: logger}
}

func (f *pooledFetcher) FetchBody(ctx context.Context, url string) (string, error) {
	return worker.Do(ctx, f.workers, func(ctx context.Context) (string, error) {
		return f.fetcher.FetchBody(ctx, url)
	})
}

// ExpandTables returns "" when the pool rejects the task.
func (f *pooledFetcher) ExpandTables(ctx context.Context, url string) string {
	tables, err := worker.Do(ctx, f.workers, func(ctx context.Context) (string, error) {
		return f.fetcher.ExpandTables(ctx, url), nil
	})
	if err != nil {
		f.logger.Debug().Err(err).Str("source", url).Msg("table expansion skipped")
	}
	return tables
}
