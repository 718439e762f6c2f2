package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"covid-risk-areas/models"
)

var rawHeader = []string{"scraped_at", "source", "page_time", "level", "province", "city", "entry"}

// RawCSVWriter appends raw (uncleaned) page entries to a CSV archive, one
// row per entry. It is safe for concurrent use.
type RawCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRawCSVWriter opens the CSV file at path for appending, writing the
// header row when the file is new. Intermediate directories are created
// automatically.
func NewRawCSVWriter(path string) (*RawCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(rawHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &RawCSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends every entry of page.
func (c *RawCSVWriter) WriteRaw(page *models.RawPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scrapedAt := page.ScrapedAt.Format(time.RFC3339)
	levels := []struct {
		name   string
		groups []models.RawGroup
	}{
		{"high", page.High},
		{"middle", page.Middle},
	}

	for _, lvl := range levels {
		for _, g := range lvl.groups {
			for _, entry := range g.Entries {
				row := []string{scrapedAt, page.Source, page.Time, lvl.name, g.Province, g.City, entry}
				if err := c.writer.Write(row); err != nil {
					return fmt.Errorf("csv: write row: %w", err)
				}
			}
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *RawCSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
