package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"price-recommender/models"
)

var csvHeader = []string{
	"productmasterid", "name", "category", "price", "originalprice", "detail", "platform",
}

// CSVWriter writes the cleaned product set to a CSV audit file.
// The file at path is only replaced once a complete snapshot has been
// written, so a failed run leaves the previous artifact in place.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
}

// NewCSVWriter prepares a writer for path. Intermediate directories are
// created automatically; the file itself is not touched until WriteProducts.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{path: path}, nil
}

// WriteProducts writes header plus products to a temporary file next to the
// target and renames it over the target.
func (c *CSVWriter) WriteProducts(products []models.CleanedProduct) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, p := range products {
		row := []string{
			p.ProductMasterID,
			p.Name,
			p.Category,
			p.Price.StringFixed(2),
			p.OriginalPrice.StringFixed(2),
			p.Detail,
			p.Platform,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv: close: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", c.path, err)
	}
	return nil
}

// Path returns the artifact location.
func (c *CSVWriter) Path() string { return c.path }
