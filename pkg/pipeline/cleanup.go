package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/fileutil"
	"github.com/xhad/newsflow/internal/types"
)

const outdatedFile = "outdated_news.json"

type CleanupConfig struct {
	Table         string
	DataDir       string
	OutdatedAfter time.Duration
	Now           func() time.Time
}

// Cleanup archives rows older than OutdatedAfter to the data directory and
// deletes them from the table. It returns how many rows were archived.
func Cleanup(ctx context.Context, config CleanupConfig, st types.Store, logger zerolog.Logger) (int, error) {
	if config.OutdatedAfter == 0 {
		config.OutdatedAfter = 120 * 24 * time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	cutoff := config.Now().Add(-config.OutdatedAfter)

	rows, err := st.FetchOlderThan(ctx, config.Table, cutoff)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		logger.Info().Time("cutoff", cutoff).Msg("no outdated news")
		return 0, nil
	}

	path := filepath.Join(config.DataDir, outdatedFile)
	var archived []map[string]interface{}
	if err := fileutil.ReadJSON(path, &archived); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("failed to read outdated news archive: %w", err)
	}
	archived = append(archived, rows...)
	if err := fileutil.WriteJSON(path, archived); err != nil {
		return 0, fmt.Errorf("failed to archive outdated news: %w", err)
	}

	if err := st.DeleteOlderThan(ctx, config.Table, cutoff); err != nil {
		return 0, err
	}
	logger.Info().Int("rows", len(rows)).Str("archive", path).Time("cutoff", cutoff).Msg("archived outdated news")
	return len(rows), nil
}
