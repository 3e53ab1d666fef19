// Package download retrieves the selected structure files and records a
// per-attempt log.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/dmeier/structure-harvester/internal/fetch"
	"github.com/dmeier/structure-harvester/internal/types"
)

// Record is one download attempt, keyed by (accession, structure id).
type Record struct {
	Accession   string  `csv:"Accession"`
	StructureID string  `csv:"Structure_ID"`
	Resolution  float64 `csv:"Resolution"`
	Method      string  `csv:"Method"`
	Status      string  `csv:"Status"`
	Filename    string  `csv:"Filename"`
}

// Downloader writes one structure file per selected record into OutDir.
type Downloader struct {
	BaseURL string
	OutDir  string
	LogPath string
	Timeout time.Duration

	// OnProgress is invoked after each attempt. May be nil.
	OnProgress func(rec Record)
}

// Run downloads every selected structure. Individual failures become per-record
// statuses, never errors; the returned error covers only environment problems
// (output directory, log file).
func (d *Downloader) Run(ctx context.Context, selected []types.SelectedStructure) ([]Record, error) {
	if err := os.MkdirAll(d.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	opts := &fetch.Options{Timeout: d.Timeout}
	records := make([]Record, 0, len(selected))

	for _, s := range selected {
		rec := Record{
			Accession:   s.Accession,
			StructureID: s.StructureID,
			Resolution:  s.Resolution,
			Method:      s.Method,
		}

		url := fmt.Sprintf("%s/%s.cif", d.BaseURL, s.StructureID)
		result, err := fetch.Text(ctx, url, opts)
		switch {
		case err != nil && result == nil:
			rec.Status = "Failed (Connection Error)"
		case err != nil:
			rec.Status = fmt.Sprintf("Failed (HTTP %d)", result.StatusCode)
		default:
			filename := fmt.Sprintf("%s_%s.cif", s.Accession, s.StructureID)
			path := filepath.Join(d.OutDir, filename)
			if werr := os.WriteFile(path, []byte(result.Body), 0o644); werr != nil {
				rec.Status = "Failed (Write Error)"
			} else {
				rec.Status = "Downloaded"
				rec.Filename = filename
			}
		}

		records = append(records, rec)
		if d.OnProgress != nil {
			d.OnProgress(rec)
		}
	}

	if len(records) > 0 && d.LogPath != "" {
		if err := writeLog(d.LogPath, records); err != nil {
			return records, err
		}
	}
	return records, nil
}

func writeLog(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating download log: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing download log: %w", err)
	}
	return nil
}
