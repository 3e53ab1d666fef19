// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of the pipeline. A populated Config is passed by
// value into the pipeline entry point; nothing reads these settings from
// package-level state.
type Config struct {
	// External sources
	TargetListURL string `json:"target_list_url,omitempty" validate:"omitempty,url"` // Raw target list (text)
	SearchURL     string `json:"search_url,omitempty" validate:"omitempty,url"`      // Identifier resolution service
	CrossRefURL   string `json:"crossref_url,omitempty" validate:"omitempty,url"`    // Gzipped cross-reference CSV
	MetadataURL   string `json:"metadata_url,omitempty" validate:"omitempty,url"`    // Structure metadata GraphQL endpoint
	DownloadURL   string `json:"download_url,omitempty" validate:"omitempty,url"`    // Base URL for structure file downloads

	// Target list parsing
	RecordMarker   string `json:"record_marker,omitempty"`   // Line prefix that marks an identifier record
	HeaderSentinel string `json:"header_sentinel,omitempty"` // Header artifact token dropped case-insensitively

	// Batching and quality thresholds
	ResolveBatchSize  int     `json:"resolve_batch_size,omitempty" validate:"gte=0"`
	MetadataBatchSize int     `json:"metadata_batch_size,omitempty" validate:"gte=0"`
	MaxResolution     float64 `json:"max_resolution,omitempty" validate:"gte=0"`
	Method            string  `json:"method,omitempty"` // Accepted experimental method

	// Timeouts, in seconds. RequestTimeout bounds every per-batch call and the
	// final file downloads; BulkTimeout bounds the cross-reference stream.
	RequestTimeoutSec int `json:"request_timeout_sec,omitempty" validate:"gte=0"`
	BulkTimeoutSec    int `json:"bulk_timeout_sec,omitempty" validate:"gte=0"`

	// Output layout
	RawDir            string `json:"raw_dir,omitempty"`           // Downloaded structure files
	ConvertedPDBDir   string `json:"converted_pdb_dir,omitempty"` // structconvert .pdb output
	ConvertedMAEDir   string `json:"converted_mae_dir,omitempty"` // structconvert .mae output
	DownloadLogPath   string `json:"download_log,omitempty"`      // Per-download-attempt CSV
	ConversionLogPath string `json:"conversion_log,omitempty"`    // Per-conversion-attempt CSV

	// Behavior
	DatabaseURL string `json:"database_url,omitempty"` // Optional PostgreSQL artifact store
	DryRun      bool   `json:"dry_run,omitempty"`      // Stop after selection, skip download/convert
	SkipConvert bool   `json:"skip_convert,omitempty"` // Download but do not invoke structconvert
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed stage summaries
}

// Defaults returns the stock configuration: the public target list, resolution
// and metadata services, X-ray structures at 3.0 or better, batch sizes that
// respect upstream pagination limits.
func Defaults() Config {
	return Config{
		TargetListURL:     "https://ttd.idrblab.cn/files/download/P2-02-TTD_uniprot_successful.txt",
		SearchURL:         "https://rest.uniprot.org/uniprotkb/search",
		CrossRefURL:       "https://ftp.ebi.ac.uk/pub/databases/msd/sifts/flatfiles/csv/pdb_chain_uniprot.csv.gz",
		MetadataURL:       "https://data.rcsb.org/graphql",
		DownloadURL:       "https://files.rcsb.org/download",
		RecordMarker:      "UNIPROID",
		HeaderSentinel:    "uniprot id",
		ResolveBatchSize:  100,
		MetadataBatchSize: 500,
		MaxResolution:     3.0,
		Method:            "X-RAY DIFFRACTION",
		RequestTimeoutSec: 30,
		BulkTimeoutSec:    600,
		RawDir:            "structures_raw",
		ConvertedPDBDir:   "structures_pdb",
		ConvertedMAEDir:   "structures_mae",
		DownloadLogPath:   "download_log.csv",
		ConversionLogPath: "conversion_log.csv",
	}
}

// RequestTimeout returns the per-call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// BulkTimeout returns the bulk-stream timeout as a duration.
func (c *Config) BulkTimeout() time.Duration {
	return time.Duration(c.BulkTimeoutSec) * time.Second
}

// Load reads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks field-level constraints and cross-field rules. It is meant
// to run after defaults and CLI overrides have been merged.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.TargetListURL == "" {
		return fmt.Errorf("config error: 'target_list_url' is required")
	}
	if c.SearchURL == "" || c.CrossRefURL == "" || c.MetadataURL == "" {
		return fmt.Errorf("config error: 'search_url', 'crossref_url' and 'metadata_url' are all required")
	}
	if c.RecordMarker == "" {
		return fmt.Errorf("config error: 'record_marker' must not be empty")
	}
	if c.ResolveBatchSize <= 0 || c.MetadataBatchSize <= 0 {
		return fmt.Errorf("config error: batch sizes must be positive")
	}
	if c.MaxResolution <= 0 {
		return fmt.Errorf("config error: 'max_resolution' must be positive")
	}
	if c.Method == "" {
		return fmt.Errorf("config error: 'method' must not be empty")
	}
	if !c.DryRun && c.DownloadURL == "" {
		return fmt.Errorf("config error: 'download_url' is required unless 'dry_run' is set")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. Bool fields are not merged; CLI flags always win for those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.TargetListURL == "" {
		result.TargetListURL = defaults.TargetListURL
	}
	if result.SearchURL == "" {
		result.SearchURL = defaults.SearchURL
	}
	if result.CrossRefURL == "" {
		result.CrossRefURL = defaults.CrossRefURL
	}
	if result.MetadataURL == "" {
		result.MetadataURL = defaults.MetadataURL
	}
	if result.DownloadURL == "" {
		result.DownloadURL = defaults.DownloadURL
	}
	if result.RecordMarker == "" {
		result.RecordMarker = defaults.RecordMarker
	}
	if result.HeaderSentinel == "" {
		result.HeaderSentinel = defaults.HeaderSentinel
	}
	if result.ResolveBatchSize == 0 {
		result.ResolveBatchSize = defaults.ResolveBatchSize
	}
	if result.MetadataBatchSize == 0 {
		result.MetadataBatchSize = defaults.MetadataBatchSize
	}
	if result.MaxResolution == 0 {
		result.MaxResolution = defaults.MaxResolution
	}
	if result.Method == "" {
		result.Method = defaults.Method
	}
	if result.RequestTimeoutSec == 0 {
		result.RequestTimeoutSec = defaults.RequestTimeoutSec
	}
	if result.BulkTimeoutSec == 0 {
		result.BulkTimeoutSec = defaults.BulkTimeoutSec
	}
	if result.RawDir == "" {
		result.RawDir = defaults.RawDir
	}
	if result.ConvertedPDBDir == "" {
		result.ConvertedPDBDir = defaults.ConvertedPDBDir
	}
	if result.ConvertedMAEDir == "" {
		result.ConvertedMAEDir = defaults.ConvertedMAEDir
	}
	if result.DownloadLogPath == "" {
		result.DownloadLogPath = defaults.DownloadLogPath
	}
	if result.ConversionLogPath == "" {
		result.ConversionLogPath = defaults.ConversionLogPath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	return result
}
