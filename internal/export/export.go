// Package export writes a summary of the saved projects as YAML or Parquet.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/studio/internal/persistence"
)

const (
	FormatYAML    = "yaml"
	FormatParquet = "parquet"
)

// Row summarises one saved project.
type Row struct {
	ID              string `yaml:"id" parquet:"id"`
	Name            string `yaml:"name" parquet:"name"`
	Timestamp       int64  `yaml:"timestamp" parquet:"timestamp"`
	SavedAt         string `yaml:"savedat" parquet:"saved_at"`
	ActiveTab       string `yaml:"activetab" parquet:"active_tab"`
	Messages        int    `yaml:"messages" parquet:"messages"`
	HistoryEntries  int    `yaml:"historyentries" parquet:"history_entries"`
	CustomClothing  int    `yaml:"customclothing" parquet:"custom_clothing"`
	CustomLocations int    `yaml:"customlocations" parquet:"custom_locations"`
}

// Catalog is the YAML document layout.
type Catalog struct {
	ExportedAt string `yaml:"exportedat"`
	Projects   []Row  `yaml:"projects"`
}

// Rows converts records, keeping their order.
func Rows(records []persistence.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		s := r.State
		rows = append(rows, Row{
			ID:              r.ID,
			Name:            r.Name,
			Timestamp:       r.Timestamp,
			SavedAt:         time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
			ActiveTab:       string(s.ActiveTab),
			Messages:        len(s.Assistant.Messages),
			HistoryEntries:  s.ImageStudio.History.Len(),
			CustomClothing:  len(s.ImageStudio.CustomClothing),
			CustomLocations: len(s.ImageStudio.CustomLocations),
		})
	}
	return rows
}

func WriteYAML(w io.Writer, rows []Row, exportedAt time.Time) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	catalog := Catalog{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Projects:   rows,
	}
	if err := enc.Encode(catalog); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func WriteParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads back rows written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

// FormatFor picks the format from an explicit name or the file extension.
func FormatFor(format, path string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if format == "yml" {
			format = FormatYAML
		}
	}
	switch format {
	case FormatYAML, FormatParquet:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q (supported: yaml, parquet)", format)
	}
}

// ToFile writes rows to path in format.
func ToFile(path, format string, rows []Row, now time.Time) error {
	format, err := FormatFor(format, path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if format == FormatParquet {
		err = WriteParquet(f, rows)
	} else {
		err = WriteYAML(f, rows, now)
	}
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	slog.Info("Exported projects", "path", path, "format", format, "count", len(rows))
	return nil
}
