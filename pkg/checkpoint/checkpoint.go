// Package checkpoint computes the deduplicated work-list of a run and slices it into batches.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/fileutil"
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/internal/types"
)

type CheckpointConfig struct {
	DataDir string
	Market  string
	// File is the run identifier. The raw items live in {DataDir}/{File}.json.
	File  string
	Table string
}

// Filter owns the checkpoint files of one run.
type Filter struct {
	config CheckpointConfig
	store  types.Store
	logger zerolog.Logger
}

func NewWithConfig(config CheckpointConfig, store types.Store, logger zerolog.Logger) (*Filter, error) {
	if config.File == "" {
		return nil, fmt.Errorf("run file is required")
	}
	if config.Market == "" {
		return nil, fmt.Errorf("market is required")
	}
	if config.DataDir == "" {
		config.DataDir = "./data"
	}

	return &Filter{
		config: config,
		store:  store,
		logger: logger,
	}, nil
}

func (f *Filter) RawPath() string {
	return filepath.Join(f.config.DataDir, f.config.File+".json")
}

func (f *Filter) FilteredPath() string {
	return filepath.Join(f.config.DataDir, f.config.Market, f.config.File+"_filtered.json")
}

func (f *Filter) YesterdayPath() string {
	return filepath.Join(f.config.DataDir, f.config.Market, f.config.File+"_yesterday.json")
}

// Batch returns the 1-based batch of the run's work-list.
// Batch 1 recomputes and persists the work-list; later batches read it back.
// A batch past the end returns an empty slice.
func (f *Filter) Batch(ctx context.Context, batch, size int) ([]models.RawItem, error) {
	if batch < 1 {
		return nil, fmt.Errorf("batch must be at least 1, got %d", batch)
	}
	if size < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", size)
	}

	var (
		items []models.RawItem
		err   error
	)
	if batch == 1 {
		f.logger.Info().Msg("batch 1: filtering against the store")
		items, err = f.Refresh(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		f.logger.Info().Int("batch", batch).Msg("using the work-list filtered by batch 1")
		items, err = f.loadFiltered()
		if err != nil {
			return nil, err
		}
	}

	return Slice(items, batch, size, f.logger), nil
}

// Refresh builds the work-list from the raw items, persists it and then
// rotates the raw items into the yesterday slot.
func (f *Filter) Refresh(ctx context.Context) ([]models.RawItem, error) {
	var raw []models.RawItem
	if err := fileutil.ReadJSON(f.RawPath(), &raw); err != nil {
		return nil, fmt.Errorf("failed to read raw items: %w", err)
	}

	yesterday := f.loadYesterday()

	stored, err := f.store.ExistingSources(ctx, f.config.Table)
	if err != nil {
		f.logger.Error().Err(err).Str("table", f.config.Table).Msg("failed to read stored sources, filtering without them")
		stored = nil
	}

	filtered := Dedup(raw, stored, yesterday)
	f.logger.Info().
		Int("raw", len(raw)).
		Int("stored", len(stored)).
		Int("yesterday", len(yesterday)).
		Int("filtered", len(filtered)).
		Msg("filtered raw items")

	// Rotate only after the work-list is saved.
	if err := fileutil.WriteJSON(f.FilteredPath(), filtered); err != nil {
		return nil, fmt.Errorf("failed to save filtered items: %w", err)
	}
	f.logger.Info().Str("path", f.FilteredPath()).Msg("saved work-list for later batches")
	if err := fileutil.CopyFile(f.RawPath(), f.YesterdayPath()); err != nil {
		return nil, fmt.Errorf("failed to rotate raw items: %w", err)
	}

	return filtered, nil
}

func (f *Filter) loadFiltered() ([]models.RawItem, error) {
	var items []models.RawItem
	err := fileutil.ReadJSON(f.FilteredPath(), &items)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Error().Str("path", f.FilteredPath()).Msg("filtered work-list not found, run batch 1 first")
		return []models.RawItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read filtered items: %w", err)
	}
	return items, nil
}

// loadYesterday reads the prior run's sources. Entries may be items or bare URLs.
// Any problem yields an empty list.
func (f *Filter) loadYesterday() []string {
	var entries []json.RawMessage
	err := fileutil.ReadJSON(f.YesterdayPath(), &entries)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		f.logger.Warn().Err(err).Msg("failed to read yesterday file, starting fresh")
		return nil
	}

	sources := make([]string, 0, len(entries))
	for _, entry := range entries {
		var source string
		if err := json.Unmarshal(entry, &source); err == nil {
			sources = append(sources, source)
			continue
		}
		var item struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(entry, &item); err == nil && item.Source != "" {
			sources = append(sources, item.Source)
		}
	}
	return sources
}

// Dedup drops items whose source is stored or was seen yesterday.
// Within raw the first occurrence of a source wins.
func Dedup(raw []models.RawItem, stored, yesterday []string) []models.RawItem {
	skip := make(map[string]struct{}, len(stored)+len(yesterday))
	for _, s := range stored {
		skip[s] = struct{}{}
	}
	for _, s := range yesterday {
		skip[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(raw))
	filtered := []models.RawItem{}
	for _, item := range raw {
		if _, ok := skip[item.Source]; ok {
			continue
		}
		if _, ok := seen[item.Source]; ok {
			continue
		}
		seen[item.Source] = struct{}{}
		filtered = append(filtered, item)
	}
	return filtered
}

// TotalBatches is ceil(n / size).
func TotalBatches(n, size int) int {
	return (n + size - 1) / size
}

// Slice returns items[(batch-1)*size : min(batch*size, len)], or empty past the end.
func Slice(items []models.RawItem, batch, size int, logger zerolog.Logger) []models.RawItem {
	total := TotalBatches(len(items), size)
	if batch > total {
		logger.Info().Int("batch", batch).Int("total_batches", total).Int("items", len(items)).Msg("batch not needed")
		return []models.RawItem{}
	}

	start := (batch - 1) * size
	end := min(start+size, len(items))
	logger.Info().Int("batch", batch).Int("total_batches", total).Int("start", start).Int("end", end-1).Msg("processing batch")
	return items[start:end]
}
