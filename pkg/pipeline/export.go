package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xhad/newsflow/internal/models"
)

var csvHeader = []string{
	"title", "body", "source", "timestamp", "score",
	"tags", "tickers", "sub_sector", "sector", "dimension",
}

// WriteCSV writes articles with list and dimension columns as JSON.
func WriteCSV(path string, articles []models.EnrichedArticle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range articles {
		record := []string{
			a.Title,
			a.Body,
			a.Source,
			a.Timestamp,
			strconv.Itoa(a.Score),
			jsonColumn(a.Tags),
			jsonColumn(a.Tickers),
			jsonColumn(a.SubSector),
			a.Sector,
			jsonColumn(a.Dimension),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func jsonColumn(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
